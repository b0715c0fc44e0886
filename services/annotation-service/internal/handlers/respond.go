package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/auth"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// authUserID extracts the acting user from the bearer token. All command
// handlers require it; events are addressed by this id.
func authUserID(r *http.Request, secret string) (string, error) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return "", auth.ErrInvalidToken
	}
	claims, err := auth.ParseAndVerifyHS256(token, secret)
	if err != nil {
		return "", err
	}
	return claims.Sub, nil
}
