package cmd

import (
	"reflect"
	"testing"
)

func TestParsePairs_EmptyStringReturnsNil(t *testing.T) {
	if got := parsePairs(""); got != nil {
		t.Fatalf("expected nil for empty string, got %#v", got)
	}
}

func TestParsePairs_SplitsCommaSeparatedKeyValues(t *testing.T) {
	got := parsePairs("app=web,tier=frontend")
	want := map[string]string{"app": "web", "tier": "frontend"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestParsePairs_SkipsMalformedPairs(t *testing.T) {
	got := parsePairs("app=web,malformed")
	want := map[string]string{"app": "web"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestRunCmd_TypeFlagExists(t *testing.T) {
	flag := runCmd.Flags().Lookup("type")
	if flag == nil {
		t.Fatal("expected --type flag on run command")
	}
	if len(flag.Annotations) == 0 {
		t.Fatal("expected --type to carry cobra's required-flag annotation")
	}
}

func TestRunCmd_DryRunFlagDefaultsFalse(t *testing.T) {
	flag := runCmd.Flags().Lookup("dry-run")
	if flag == nil {
		t.Fatal("expected --dry-run flag on run command")
	}
	if flag.DefValue != "false" {
		t.Fatalf("expected dry-run default false, got %s", flag.DefValue)
	}
}

func TestRunCmd_RequiresExactlyOneArg(t *testing.T) {
	if runCmd.Args == nil {
		t.Fatal("expected run command to validate args")
	}
	if err := runCmd.Args(runCmd, []string{}); err == nil {
		t.Fatal("expected error for zero args")
	}
	if err := runCmd.Args(runCmd, []string{"one", "two"}); err == nil {
		t.Fatal("expected error for two args")
	}
	if err := runCmd.Args(runCmd, []string{"one"}); err != nil {
		t.Fatalf("unexpected error for one arg: %v", err)
	}
}
