package cli

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		appHandle = nil
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "contchain dev") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestProductsCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "products", "--log-level", "error")
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	for _, want := range []string{"CL", "Crude_Oil", "HKNUZ"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestShowRequiresProduct(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := execute(t, "show", "--product", ""); err == nil || !strings.Contains(err.Error(), "--product") {
		t.Fatalf("expected --product error, got %v", err)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"setup-db", "build", "run", "export", "show", "products", "simulate-alert", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("command %q not registered: %v", name, err)
		}
	}
}
