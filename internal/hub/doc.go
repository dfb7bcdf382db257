// Package hub implements the in-memory presence and coordination core of
// SpaceHub: the connection registry, presence broadcasting, chat-session
// pairing, signaling relay, and stale-connection reaping. All shared state
// lives behind a single Hub instance so tests can construct isolated hubs.
package hub
