// Package publisher announces completed game sessions on Redis streams so
// external scoreboards can follow along. It is optional: the arcade runs
// without it when no Redis URL is configured.
package publisher
