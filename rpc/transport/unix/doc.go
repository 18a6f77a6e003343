// Package unix implements the Unix domain socket transport of shKV's RPC system.
// The endpoint is a socket path. Since all clients of shKV live on the same host,
// this avoids the TCP stack entirely.
//
// On Listen a leftover socket file of a crashed server is removed, but only if no
// server answers on it. The file is unlinked again when the listener is closed.
package unix
