package cli

import (
	"bytes"
	"errors"
	"testing"
)

func TestGetPassword(t *testing.T) {
	stubPasswords(t, "hunter2")
	var out bytes.Buffer
	got, err := GetPassword(&out, "Password: ")
	if err != nil || got != "hunter2" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	if out.String() != "Password: \n" {
		t.Fatalf("unexpected prompt output %q", out.String())
	}
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	var out bytes.Buffer
	_, err := GetPassword(&out, "Password: ")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGetNewPassword(t *testing.T) {
	stubPasswords(t, "a", "a")
	var out bytes.Buffer
	if got, err := GetNewPassword(&out); err != nil || got != "a" {
		t.Fatalf("got %q, err=%v", got, err)
	}

	stubPasswords(t, "a", "b")
	if _, err := GetNewPassword(&out); !errors.Is(err, errPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
