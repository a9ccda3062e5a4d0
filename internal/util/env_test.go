package util

import "testing"

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("LIFEOS_TEST_SET", " value ")
	t.Setenv("LIFEOS_TEST_BLANK", "  ")

	if got := EnvOrDefault("LIFEOS_TEST_SET", "x"); got != "value" {
		t.Errorf("set = %q", got)
	}
	if got := EnvOrDefault("LIFEOS_TEST_BLANK", "x"); got != "x" {
		t.Errorf("blank = %q", got)
	}
	if got := EnvOrDefault("LIFEOS_TEST_UNSET_VARIABLE", "x"); got != "x" {
		t.Errorf("unset = %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", " ", " alice ", "bob"); got != "alice" {
		t.Errorf("FirstNonEmpty = %q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Errorf("no values = %q", got)
	}
}
