/*
Package client runs a SwUDP statistics session against one server.

A session starts with a connect frame carrying a random session id. In
polling mode the client then sends a statistics request every interval and
redraws the console for each reply. In one-shot mode it sends a single
command request and returns once the response code has been shown.

Two goroutines cooperate: the session loop that sends requests, and the
Driver's receive loop that acknowledges every datagram longer than an ack
and hands the decoded reply to the client. Both write to the same endpoint
through the Driver's send mutex. There is no retransmission: each request is
sent once and any transport error ends the session.
*/
package client
