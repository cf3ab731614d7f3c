// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	if FormatError(nil, "config.cue") != nil {
		t.Error("FormatError(nil) should be nil")
	}

	plain := FormatError(errors.New("permission denied"), "config.cue")
	if plain.Error() != "config.cue: permission denied" {
		t.Errorf("FormatError(plain) = %q", plain)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(`#C: { timeouts: { start: string } }`).LookupPath(cue.ParsePath("#C"))
	value := ctx.CompileString(`timeouts: start: 5`)
	err := schema.Unify(value).Validate()
	if err == nil {
		t.Fatal("expected a CUE validation error")
	}

	got := FormatError(err, "config.cue").Error()
	if !strings.HasPrefix(got, "config.cue: ") {
		t.Errorf("FormatError() = %q, want file prefix", got)
	}
	if !strings.Contains(got, "timeouts.start") {
		t.Errorf("FormatError() = %q, want the field path", got)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"log"}, "log"},
		{[]string{"timeouts", "start"}, "timeouts.start"},
		{[]string{"volumes", "0", "name"}, "volumes[0].name"},
		{[]string{"0"}, "0"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize([]byte("abc"), 3, "a.cue"); err != nil {
		t.Errorf("CheckFileSize(at limit) = %v", err)
	}
	err := CheckFileSize([]byte("abcd"), 3, "a.cue")
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum 3 bytes") {
		t.Errorf("CheckFileSize(over limit) = %v", err)
	}
}

func TestReadFileLimited(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	small := filepath.Join(dir, "small.cue")
	if err := os.WriteFile(small, []byte("a: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := ReadFileLimited(small, 64)
	if err != nil || string(data) != "a: 1\n" {
		t.Errorf("ReadFileLimited() = %q, %v", data, err)
	}
	if _, err := ReadFileLimited(small, 2); err == nil {
		t.Error("ReadFileLimited() should reject files over the limit")
	}
	if _, err := ReadFileLimited(filepath.Join(dir, "missing.cue"), 64); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFileLimited(missing) = %v, want os.ErrNotExist", err)
	}
}
