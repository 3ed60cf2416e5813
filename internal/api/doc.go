// Package api exposes the scheduling engine over HTTP. Handlers decode and
// validate requests, call the queue and card review services, and map
// service errors to status codes without leaking internal detail.
package api
