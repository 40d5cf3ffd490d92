package docs

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDocumentListsEveryRoute(t *testing.T) {
	SwaggerInfo.Version = "test"
	SwaggerInfo.Host = "localhost:8080"

	var doc struct {
		BasePath    string                                `json:"basePath"`
		Paths       map[string]map[string]json.RawMessage `json:"paths"`
		Definitions map[string]json.RawMessage            `json:"definitions"`
	}
	if err := json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc); err != nil {
		t.Fatalf("document is not valid json: %v", err)
	}
	if doc.BasePath != "/v1" {
		t.Errorf("unexpected base path %q", doc.BasePath)
	}

	routes := []string{
		"GET /attendance/events",
		"GET /attendance/report",
		"POST /attendance/scan",
		"GET /authentication/me",
		"POST /authentication/register-company",
		"POST /authentication/token",
		"GET /companies",
		"POST /companies",
		"GET /companies/{companyID}",
		"PATCH /companies/{companyID}",
		"GET /company",
		"GET /company/accounts",
		"POST /company/accounts",
		"DELETE /company/accounts/{accountID}",
		"GET /dashboard",
		"GET /employees",
		"POST /employees",
		"GET /employees/{employeeID}",
		"PATCH /employees/{employeeID}",
		"DELETE /employees/{employeeID}",
		"GET /employees/{employeeID}/badge.png",
		"POST /employees/{employeeID}/qr",
		"GET /employees/{employeeID}/status",
		"GET /health",
	}
	for _, route := range routes {
		method, path, _ := strings.Cut(route, " ")
		if _, ok := doc.Paths[path][strings.ToLower(method)]; !ok {
			t.Errorf("missing %s", route)
		}
	}

	for _, name := range []string{"ErrorResponse", "main.ScanPayload", "attendance.Event", "recorder.Report"} {
		if _, ok := doc.Definitions[name]; !ok {
			t.Errorf("missing definition %s", name)
		}
	}
}
