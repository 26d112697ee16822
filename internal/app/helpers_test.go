package app

import "github.com/liquidnya/eventsource/pkg/eventsource"

func messageOf(id, data string) eventsource.Message {
	return eventsource.Message{ID: id, Data: data}
}
