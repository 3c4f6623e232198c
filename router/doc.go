// Package router is the HTTP client for the router bot that brokers messages
// between human users and dialog agents.
//
// The router exposes two endpoints below a per-bot base URL:
//
//	GET  <router>/<bot id>/getUpdates   pending messages for the bot
//	POST <router>/<bot id>/sendMessage  one reply to a chat
//
// Inbound message text may itself be a JSON document carrying the text in a
// "text" field. Outbound text is always such a document, pairing the reply
// text with an evaluation.
package router
