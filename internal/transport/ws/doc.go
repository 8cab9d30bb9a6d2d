// Package ws hosts integrity engines behind a websocket endpoint.
//
// Each connection is served by one owner goroutine that feeds the engine
// inbound frames from a reader goroutine and elapsed time from a ticker, so
// the engine never sees concurrent calls. Every binary message carries one
// encrypted warden frame.
package ws
