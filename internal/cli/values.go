package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illarion/strongbox"
	"github.com/illarion/strongbox/codec"
)

// Put stores value under key. With asJSON the value must be a JSON
// document and is stored as raw JSON rather than as an archived string.
func (a *App) Put(ctx context.Context, key, value, tierName string, asJSON bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tier := a.cfg.StoreTier()
	if tierName != "" {
		var err error
		if tier, err = strongbox.ParseTier(tierName); err != nil {
			return err
		}
	}

	sb, release, err := a.open()
	if err != nil {
		return err
	}
	defer release()

	var res strongbox.Result
	if asJSON {
		raw := json.RawMessage(value)
		if !json.Valid(raw) {
			return errors.New("value is not valid JSON")
		}
		if res, err = strongbox.Encode(sb, &raw, key, codec.JSON{}, tier); err != nil {
			return err
		}
	} else {
		res = sb.Archive(value, key, tier)
	}
	if !res.OK() {
		return res.Err
	}

	fmt.Fprintf(a.out, "stored: %s (%s)\n", res.Key, tier)
	return nil
}

// Get prints the value stored under key
func (a *App) Get(ctx context.Context, key string, asJSON bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sb, release, err := a.open()
	if err != nil {
		return err
	}
	defer release()

	text, err := stored(sb, key, asJSON)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, text)
	return nil
}

// Remove deletes keys. Keys that are not stored are reported but are not
// an error.
func (a *App) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return errors.New("no keys specified")
	}

	sb, release, err := a.open()
	if err != nil {
		return err
	}
	defer release()

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := sb.Remove(key)
		switch {
		case !res.OK():
			return res.Err
		case res.Status == strongbox.StatusNotFound:
			fmt.Fprintf(a.out, "not stored: %s\n", res.Key)
		default:
			fmt.Fprintf(a.out, "removed: %s\n", res.Key)
		}
	}
	return nil
}

// stored renders the value under key as text. Archived values are tried
// first unless asJSON is set; raw JSON documents are the fallback.
func stored(sb *strongbox.Strongbox, key string, asJSON bool) (string, error) {
	if !asJSON {
		v, res := sb.Unarchive(key)
		if res.OK() {
			return render(v), nil
		}
		if res.Err == nil {
			return "", fmt.Errorf("%w: %s", strongbox.ErrNotFound, res.Key)
		}
		var de *codec.DecodeError
		if !errors.As(res.Err, &de) {
			return "", res.Err
		}
	}

	raw, res, err := strongbox.Decode[json.RawMessage](sb, key, codec.JSON{})
	if err != nil {
		return "", err
	}
	if !res.OK() {
		if res.Err != nil {
			return "", res.Err
		}
		return "", fmt.Errorf("%w: %s", strongbox.ErrNotFound, res.Key)
	}
	return string(raw), nil
}

// render formats an archived value: strings and bytes verbatim, anything
// else as indented JSON.
func render(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
