// Package controller models the download controller that owns item metadata
// and lifecycle. The Client interface is the capability shuttle consumes;
// Rtorrent implements it over XML-RPC via SCGI, and Retrying adds bounded
// retries with per-call deadlines for read operations.
package controller
