// Command envdoc prints the environment variables ssetail understands as
// Markdown.
package main

import (
	"fmt"

	"github.com/liquidnya/eventsource/internal/config"
)

func main() {
	fmt.Println("# ssetail Environment Variables")
	fmt.Println()
	fmt.Println("Environment variables override values from the configuration file,")
	fmt.Println("which override the built-in defaults.")
	fmt.Println()
	fmt.Println("## Available Environment Variables")
	fmt.Println()

	for _, example := range config.EnvExample(&config.Config{}) {
		fmt.Printf("- `%s`\n", example)
	}

	fmt.Println()
	fmt.Println("## Examples")
	fmt.Println()
	fmt.Println("```bash")
	fmt.Println("# Tail a stream with cookies and a bearer token")
	fmt.Printf("export %s_STREAM_URL=https://example.com/events\n", config.EnvPrefix)
	fmt.Printf("export %s_STREAM_WITHCREDENTIALS=true\n", config.EnvPrefix)
	fmt.Printf("export %s_CREDENTIALS_BEARERTOKEN=token\n", config.EnvPrefix)
	fmt.Println()
	fmt.Println("# Resume across restarts")
	fmt.Printf("export %s_CHECKPOINT_TYPE=redis\n", config.EnvPrefix)
	fmt.Printf("export %s_CHECKPOINT_REDIS_ADDR=localhost:6379\n", config.EnvPrefix)
	fmt.Println()
	fmt.Println("# Expose metrics")
	fmt.Printf("export %s_METRICS_ENABLED=true\n", config.EnvPrefix)
	fmt.Println()
	fmt.Println("./ssetail -config ssetail.yaml")
	fmt.Println("```")
	fmt.Println()
	fmt.Println("## Defaults")
	fmt.Println()
	fmt.Println("```yaml")
	fmt.Print(config.DefaultYAML())
	fmt.Println("```")
}
