// Package redis provides Redis backed collaborators: a ContentCache with
// dependency tracking and an access index, and a pub/sub bridge that lets
// remote parties hold and release orchestrator gates.
package redis
