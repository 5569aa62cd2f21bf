// Package transport defines the datagram endpoint used to talk to a SwUDP
// server, plus the endpoint kinds the client can be configured with.
//
// Implementations:
//   - udp: a connected UDP socket to a fixed server address
//   - mem: in-process datagram pairs and a named loopback network
//
// An Endpoint preserves datagram boundaries, including zero-length datagrams,
// which the protocol uses as a disconnect signal.
package transport
