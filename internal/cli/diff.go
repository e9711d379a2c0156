package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/illarion/strongbox/internal/crypto"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff compares the value stored under key with the contents of path
func (a *App) Diff(ctx context.Context, key, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	local, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer crypto.ClearBytes(local)

	sb, release, err := a.open()
	if err != nil {
		return err
	}
	defer release()

	text, err := stored(sb, key, false)
	if err != nil {
		return err
	}

	diff := unifiedDiff(sb.Key(key), path, []byte(text), bytes.TrimSuffix(local, []byte("\n")))
	if diff == "" {
		fmt.Fprintln(a.out, "No changes detected")
		return nil
	}
	fmt.Fprint(a.out, diff)
	return nil
}

// unifiedDiff returns a patch turning the stored value into the local
// file, or "" when they are equal.
func unifiedDiff(key, path string, storedData, localData []byte) string {
	if bytes.Equal(storedData, localData) {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better output
	storedStr, localStr := string(storedData), string(localData)
	a, b, lineArray := dmp.DiffLinesToChars(storedStr, localStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(storedStr, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	fmt.Fprintf(&result, "--- %s\n", key)
	fmt.Fprintf(&result, "+++ %s\n", path)
	result.WriteString(dmp.PatchToText(patches))
	return result.String()
}
