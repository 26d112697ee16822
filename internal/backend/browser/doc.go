// Package browser drives the host page's EventSource through syscall/js.
// It is only built for js/wasm.
package browser
