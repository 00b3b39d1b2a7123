/*
Package observability turns engine lifecycle hooks into Prometheus metrics and structured logs.

Events carry node ids, action types, durations and prompt sizes. They never carry prompt
content, so neither metrics nor logs can leak fenced values.
*/
package observability
