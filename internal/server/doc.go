// Package server implements the HTTP API of the document library:
// registration and login, file upload, listing, search, update, delete and
// download. It wires the routes to the user and file stores, the blob
// store and the mail dispatcher handed in through Config, and provides the
// lifecycle helpers used by tests and the production binary.
package server
