package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"testing"
)

func registerAndLogin(t *testing.T, env *testEnv, username string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
		"role":     "teacher",
	})
	resp, err := env.ts.Client().Post(env.ts.URL+"/api/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}

	var auth AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	return auth.Token
}

func doJSON(t *testing.T, env *testEnv, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, env.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestCasesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env, http.MethodGet, "/api/cases", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestCaseCRUDOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := registerAndLogin(t, env, "teacher1")

	// Create
	resp := doJSON(t, env, http.MethodPost, "/api/cases", token, map[string]any{
		"case_name":      "sepsis day 1",
		"patient_name":   "John Doe",
		"patient_id":     "P-100",
		"base_values":    map[string]any{"pulse": 97},
		"base_problem":   "fever and confusion",
		"learning_goals": "recognize early sepsis",
		"start_point":    "triage",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create case status: %d", resp.StatusCode)
	}
	var created CaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created case: %v", err)
	}
	resp.Body.Close()
	if created.CaseName != "sepsis day 1" || created.BaseValues["pulse"] != float64(97) {
		t.Fatalf("unexpected created case: %+v", created)
	}

	id := strconv.FormatInt(created.ID, 10)

	// Patch only one field
	resp = doJSON(t, env, http.MethodPatch, "/api/cases/"+id, token, map[string]any{
		"case_name": "sepsis day 2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch case status: %d", resp.StatusCode)
	}
	var patched CaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&patched); err != nil {
		t.Fatalf("decode patched case: %v", err)
	}
	resp.Body.Close()
	if patched.CaseName != "sepsis day 2" || patched.PatientName != "John Doe" {
		t.Fatalf("patch clobbered fields: %+v", patched)
	}

	// List
	resp = doJSON(t, env, http.MethodGet, "/api/cases", token, nil)
	var listed []CaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode case list: %v", err)
	}
	resp.Body.Close()
	if len(listed) != 1 {
		t.Fatalf("expected 1 case, got %d", len(listed))
	}

	// Delete, then 404
	resp = doJSON(t, env, http.MethodDelete, "/api/cases/"+id, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete case status: %d", resp.StatusCode)
	}
	resp = doJSON(t, env, http.MethodGet, "/api/cases/"+id, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestSimulationAndFileUpload(t *testing.T) {
	env := newTestEnv(t)
	token := registerAndLogin(t, env, "teacher1")

	// Case to build the simulation from.
	resp := doJSON(t, env, http.MethodPost, "/api/cases", token, map[string]any{
		"case_name":      "asthma",
		"patient_name":   "Jane Doe",
		"patient_id":     "P-200",
		"base_problem":   "wheezing",
		"learning_goals": "bronchodilator choice",
		"start_point":    "ward",
	})
	var createdCase CaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&createdCase); err != nil {
		t.Fatalf("decode case: %v", err)
	}
	resp.Body.Close()

	// Simulation referencing a missing case is refused.
	resp = doJSON(t, env, http.MethodPost, "/api/simulations", token, map[string]any{"case_id": 9999})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown case, got %d", resp.StatusCode)
	}

	resp = doJSON(t, env, http.MethodPost, "/api/simulations", token, map[string]any{
		"case_id":       createdCase.ID,
		"patient_notes": "stable",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create simulation status: %d", resp.StatusCode)
	}
	var sim SimulationResponse
	if err := json.NewDecoder(resp.Body).Decode(&sim); err != nil {
		t.Fatalf("decode simulation: %v", err)
	}
	resp.Body.Close()
	if !sim.Active {
		t.Fatalf("new simulation should be active")
	}

	// Multipart upload attached to the simulation.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("simulation_id", strconv.FormatInt(sim.ID, 10))
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("observation notes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/api/files", &buf)
	if err != nil {
		t.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status: %d", resp.StatusCode)
	}
	var uploaded FileResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode file response: %v", err)
	}
	resp.Body.Close()
	if uploaded.FileName != "notes.txt" || uploaded.SimulationID != sim.ID {
		t.Fatalf("unexpected file record: %+v", uploaded)
	}

	// Download returns the original content under the original name.
	resp = doJSON(t, env, http.MethodGet, "/api/files/"+strconv.FormatInt(uploaded.ID, 10), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status: %d", resp.StatusCode)
	}
	content, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(content) != "observation notes" {
		t.Fatalf("unexpected download content: %q", content)
	}

	// Listing by simulation sees the upload.
	resp = doJSON(t, env, http.MethodGet, "/api/simulations/"+strconv.FormatInt(sim.ID, 10)+"/files", token, nil)
	var files []FileResponse
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		t.Fatalf("decode file list: %v", err)
	}
	resp.Body.Close()
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
}
