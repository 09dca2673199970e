package cli

import (
	"bytes"
	"strings"
	"testing"
)

func runCmd(args ...string) (stdout, stderr string, err error) {
	cmd := NewRootCmd(Config{})
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestVersionFlagShortCircuits(t *testing.T) {
	stdout, _, err := runCmd("--version")
	if err != nil {
		t.Fatal(err)
	}
	if stdout == "" {
		t.Error("expected --version to print something")
	}
}

func TestInitializeAndSlotSuffixAreMutuallyExclusive(t *testing.T) {
	_, _, err := runCmd("-i", "-s", "_b", "pkg.bup")
	if err == nil {
		t.Fatal("expected an error combining --initialize and --slot-suffix")
	}
	if !strings.Contains(err.Error(), "initialize") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestMissingPackagePathIsRejected(t *testing.T) {
	_, _, err := runCmd()
	if err == nil {
		t.Fatal("expected an error when no package path and no --needs-repartition is given")
	}
}

func TestInvalidSlotSuffixIsRejected(t *testing.T) {
	_, _, err := runCmd("-s", "_c", "pkg.bup")
	if err == nil {
		t.Fatal("expected an error for a slot suffix other than _a or _b")
	}
}

func TestExitCodeOfTranslatesKnownAndUnknownErrors(t *testing.T) {
	if ExitCodeOf(nil) != 0 {
		t.Error("nil error should map to exit code 0")
	}
	if ExitCodeOf(exitStatusErr(2)) != 2 {
		t.Error("exitStatusErr should map to its own value")
	}
}
