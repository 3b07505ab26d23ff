package input

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
)

const nsaTable = "\ufeffOBJECTID,NAME,NEIGHBORHO\n" +
	"1,A,\"Midtown, Downtown\"\n" +
	"2,B,\"Grant Park , Ormewood Park,\"\n" +
	"3,C,\n" +
	"4,D,Kirkwood\n"

func TestReadGroups(t *testing.T) {
	groups, err := ReadGroups(strings.NewReader(nsaTable), "NEIGHBORHO")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}

	want := [][]string{
		{"Midtown", "Downtown"},
		{"Grant Park", "Ormewood Park"},
		{"Kirkwood"},
	}
	for i, group := range groups {
		if len(group.Areas) != len(want[i]) {
			t.Fatalf("group %d areas = %q, want %q", i, group.Areas, want[i])
		}
		for j := range want[i] {
			if group.Areas[j] != want[i][j] {
				t.Fatalf("group %d area %d = %q, want %q", i, j, group.Areas[j], want[i][j])
			}
		}
	}
}

func TestReadGroupsErrors(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		column  string
		wantErr string
	}{
		{name: "empty table", table: "", column: "NEIGHBORHO", wantErr: "no area groups"},
		{name: "header only", table: "NEIGHBORHO\n", column: "NEIGHBORHO", wantErr: "no area groups"},
		{name: "missing column", table: "NAME\nMidtown\n", column: "NEIGHBORHO", wantErr: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGroups(strings.NewReader(tt.table), tt.column)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadGroupsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nsa.csv")
	if err := os.WriteFile(path, []byte(nsaTable), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}

	groups, err := LoadGroups(context.Background(), path, "NEIGHBORHO", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}

	if _, err := LoadGroups(context.Background(), path+".missing", "NEIGHBORHO", nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadGroupsRemote(t *testing.T) {
	const tableURL = "http://data.example.test/nsa.csv"

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", tableURL, httpmock.NewStringResponder(http.StatusOK, nsaTable))

	fetcher := NewFetcher(FetcherConfig{})
	fetcher.transport = transport

	groups, err := LoadGroups(context.Background(), tableURL, "NEIGHBORHO", fetcher)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(groups) != 3 || groups[0].Areas[0] != "Midtown" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	if got := transport.GetCallCountInfo()["GET "+tableURL]; got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestFetcherHTTPStatus(t *testing.T) {
	const tableURL = "http://data.example.test/gone.csv"

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", tableURL, httpmock.NewStringResponder(http.StatusNotFound, "not here"))

	fetcher := NewFetcher(FetcherConfig{})
	fetcher.transport = transport

	_, err := fetcher.Fetch(context.Background(), tableURL)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected status 404 error, got %v", err)
	}
}

func TestFetcherCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(FetcherConfig{})
	fetcher.transport = httpmock.NewMockTransport()

	if _, err := fetcher.Fetch(ctx, "http://data.example.test/nsa.csv"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
