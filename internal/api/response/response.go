package response

import (
	"encoding/json"
	"net/http"
)

type envelope struct {
	Data any `json:"data"`
}

type collectionEnvelope struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// JSON writes v as the whole body with status 200.
func JSON(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

// JSONStatus writes v as the whole body with the given status.
func JSONStatus(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}

// Data wraps v as {"data": v}.
func Data(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, envelope{Data: v})
}

func Collection(w http.ResponseWriter, data any, p Pagination) {
	writeJSON(w, http.StatusOK, collectionEnvelope{Data: data, Pagination: p})
}

// Raw writes an already-encoded JSON body without touching it.
func Raw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func Error(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
