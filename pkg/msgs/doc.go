// Package msgs defines the messages a sensor node publishes.
//
// Reports are protobuf encoded, one message per report. Device info is a
// YAML document published once per session start.
package msgs
