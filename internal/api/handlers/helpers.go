package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeOneOrMany accepts either a single JSON object or a non-empty
// array of objects and reports which of the two forms arrived.
func decodeOneOrMany[T any](r *http.Request) (reqs []T, single bool, err error) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, false, errors.New("empty body")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	if trimmed[0] == '[' {
		var many []T
		if err := dec.Decode(&many); err != nil {
			return nil, false, errors.New("invalid json body")
		}
		if err := dec.Decode(&struct{}{}); err != io.EOF {
			return nil, false, errors.New("body must contain only one JSON value")
		}
		if len(many) == 0 {
			return nil, false, errors.New("request list must not be empty")
		}
		return many, false, nil
	}

	var one T
	if err := dec.Decode(&one); err != nil {
		return nil, false, errors.New("invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, false, errors.New("body must contain only one JSON object")
	}
	return []T{one}, true, nil
}

// parseIDList splits a comma-separated id query parameter. An empty
// parameter yields a nil list.
func parseIDList(raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseNameList splits a comma-separated name query parameter, dropping
// empty entries.
func parseNameList(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}
