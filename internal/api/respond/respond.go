// Package respond centralizes JSON response writing for the HTTP API.
package respond

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body for operations that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 response with the given payload.
func OK(w http.ResponseWriter, v interface{}) {
	writeJSON(w, http.StatusOK, v)
}

// Created writes a 201 response with the given payload.
func Created(w http.ResponseWriter, v interface{}) {
	writeJSON(w, http.StatusCreated, v)
}

// Message writes a 200 response with a message body.
func Message(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// Fail writes an error response with the given status.
func Fail(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
