// Package sockjs implements the server side of the SockJS protocol:
// URL routing, session management and the transports SockJS clients
// expect: websocket (framed and raw), XHR streaming and XHR polling.
//
// Application code interacts with the package through Handler and
// Session: a Handler serves one application endpoint and calls the
// application function with a Session for every started session.
package sockjs
