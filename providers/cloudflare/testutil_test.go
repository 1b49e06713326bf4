package cloudflare

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// successResponse creates a successful Cloudflare API response.
func successResponse(result interface{}) map[string]interface{} {
	return map[string]interface{}{
		"success":  true,
		"errors":   []interface{}{},
		"messages": []interface{}{},
		"result":   result,
	}
}

// errorResponse creates an error Cloudflare API response.
func errorResponse(code int, message string) map[string]interface{} {
	return map[string]interface{}{
		"success": false,
		"errors": []map[string]interface{}{
			{"code": code, "message": message},
		},
		"messages": []interface{}{},
		"result":   nil,
	}
}

// fakeAPI is an in-memory Cloudflare API serving zones and A records.
type fakeAPI struct {
	t *testing.T

	mu       sync.Mutex
	zones    map[string]string // name -> id
	records  map[string][]dnsRecord
	puts     []updateRecordRequest
	headers  http.Header
	pageSize int
	status   int // forced status for every request, 0 = normal
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	f := &fakeAPI{
		t:        t,
		zones:    make(map[string]string),
		records:  make(map[string][]dnsRecord),
		pageSize: pageSize,
	}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeAPI) addRecord(zoneID string, r dnsRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.Type = "A"
	f.records[zoneID] = append(f.records[zoneID], r)
}

func (f *fakeAPI) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.headers = r.Header.Clone()

	if f.status != 0 {
		f.writeJSON(w, f.status, errorResponse(10000, http.StatusText(f.status)))
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/user/tokens/verify" || r.URL.Path == "/user":
		f.writeJSON(w, http.StatusOK, successResponse(map[string]string{"status": "active"}))

	case r.URL.Path == "/zones":
		name := r.URL.Query().Get("name")
		var result []zoneResult
		if id, ok := f.zones[name]; ok {
			result = append(result, zoneResult{ID: id, Name: name, Status: "active"})
		}
		f.writeJSON(w, http.StatusOK, successResponse(result))

	case len(parts) == 3 && parts[0] == "zones" && parts[2] == "dns_records" && r.Method == http.MethodGet:
		f.listRecords(w, r, parts[1])

	case len(parts) == 4 && parts[0] == "zones" && parts[2] == "dns_records" && r.Method == http.MethodPut:
		f.putRecord(w, r, parts[1], parts[3])

	default:
		f.writeJSON(w, http.StatusNotFound, errorResponse(7003, "no route"))
	}
}

func (f *fakeAPI) listRecords(w http.ResponseWriter, r *http.Request, zoneID string) {
	q := r.URL.Query()
	if q.Get("type") != "A" {
		f.t.Errorf("expected type=A, got %q", q.Get("type"))
	}
	if q.Get("per_page") != strconv.Itoa(pageSize) {
		f.t.Errorf("expected per_page=%d, got %q", pageSize, q.Get("per_page"))
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	var matched []dnsRecord
	for _, rec := range f.records[zoneID] {
		if name := q.Get("name"); name == "" || rec.Name == name {
			matched = append(matched, rec)
		}
	}

	totalPages := (len(matched) + f.pageSize - 1) / f.pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	start := (page - 1) * f.pageSize
	end := start + f.pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	resp := successResponse(matched[start:end])
	resp["result_info"] = map[string]int{
		"page":        page,
		"per_page":    f.pageSize,
		"total_pages": totalPages,
		"count":       end - start,
		"total_count": len(matched),
	}
	f.writeJSON(w, http.StatusOK, resp)
}

func (f *fakeAPI) putRecord(w http.ResponseWriter, r *http.Request, zoneID, recordID string) {
	body, _ := io.ReadAll(r.Body)
	var req updateRecordRequest
	if err := json.Unmarshal(body, &req); err != nil {
		f.writeJSON(w, http.StatusBadRequest, errorResponse(9207, err.Error()))
		return
	}

	for i, rec := range f.records[zoneID] {
		if rec.ID == recordID {
			f.puts = append(f.puts, req)
			f.records[zoneID][i] = dnsRecord{ID: recordID, Type: req.Type, Name: req.Name, Content: req.Content, TTL: req.TTL, Proxied: req.Proxied}
			f.writeJSON(w, http.StatusOK, successResponse(f.records[zoneID][i]))
			return
		}
	}
	f.writeJSON(w, http.StatusNotFound, errorResponse(81044, fmt.Sprintf("record %s not found", recordID)))
}
