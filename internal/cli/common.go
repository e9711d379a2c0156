package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/illarion/strongbox"
	"github.com/illarion/strongbox/codec"
)

// HandleError prints err in a user-friendly form and exits
func HandleError(err error) {
	WriteError(os.Stderr, err)
	os.Exit(1)
}

// WriteError prints err with a hint for the errors a user can act on
func WriteError(w io.Writer, err error) {
	switch {
	case errors.Is(err, ErrNoVault), errors.Is(err, strongbox.ErrVaultNotInitialized):
		fmt.Fprintf(w, "Error: vault not initialized\n")
		fmt.Fprintf(w, "Run 'strongbox init' first\n")
	case errors.Is(err, strongbox.ErrVaultAlreadyInitialized):
		fmt.Fprintf(w, "Error: vault already exists\n")
		fmt.Fprintf(w, "Use 'strongbox status' to see current state\n")
	case errors.Is(err, strongbox.ErrWrongPassword):
		fmt.Fprintf(w, "Error: wrong password\n")
	case errors.Is(err, strongbox.ErrLocked):
		fmt.Fprintf(w, "Error: vault is locked\n")
	case errors.Is(err, strongbox.ErrNotFound):
		fmt.Fprintf(w, "Error: %s\n", err)
	case errors.Is(err, ErrFileBackendOnly):
		fmt.Fprintf(w, "Error: %s\n", err)
		fmt.Fprintf(w, "Use '-backend file' or set backend: file in the config\n")
	case errors.Is(err, codec.ErrShapeMismatch), errors.Is(err, codec.ErrUnknownType):
		fmt.Fprintf(w, "Error: stored value cannot be read by this version: %s\n", err)
	default:
		fmt.Fprintf(w, "Error: %s\n", err)
	}
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
