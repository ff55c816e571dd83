package command

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	goSession "github.com/MrEthical07/goSession"
	"github.com/urfave/cli/v2"
)

// EncodedView is the result of encode.
type EncodedView struct {
	Cookie    string    `json:"cookie" yaml:"cookie"`
	Value     string    `json:"value" yaml:"value"`
	KeyID     string    `json:"key_id" yaml:"key_id"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
	Size      int       `json:"size" yaml:"size"`
}

// DecodedView is the result of decode.
type DecodedView struct {
	KeyID     string            `json:"key_id" yaml:"key_id"`
	Retired   bool              `json:"retired" yaml:"retired"`
	ExpiresAt time.Time         `json:"expires_at" yaml:"expires_at"`
	Values    map[string]string `json:"values" yaml:"values"`
}

// EncodeCommand returns the encode command.
func EncodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "Encode a session into a cookie value",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "set",
				Aliases: []string{"s"},
				Usage:   "Session value as key=value (repeatable)",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Session lifetime (default: session.ttl from config)",
			},
		},
		Action: encodeAction,
	}
}

// DecodeCommand returns the decode command.
func DecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Verify a cookie value and print the session it carries",
		ArgsUsage: "VALUE | -",
		Flags: []cli.Flag{
			&cli.TimestampFlag{
				Name:   "at",
				Usage:  "Evaluate expiry at this instant (RFC 3339)",
				Layout: time.RFC3339,
			},
		},
		Action: decodeAction,
	}
}

func encodeAction(c *cli.Context) error {
	engine, _, err := BuildEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	now := engine.Now()
	s := engine.NewSession(now)
	if ttl := c.Duration("ttl"); ttl > 0 {
		s.ExpiresAt = now.Add(ttl).UTC()
	}
	for _, kv := range c.StringSlice("set") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return cli.Exit(fmt.Sprintf("--set %q: want key=value", kv), 2)
		}
		s.InsertString(k, v)
	}

	value, err := engine.Encode(c.Context, s)
	if err != nil {
		return err
	}
	return Print(c, EncodedView{
		Cookie:    engine.CookieName(),
		Value:     value,
		KeyID:     engine.Ring().Active().ID(),
		ExpiresAt: s.ExpiresAt,
		Size:      len(value),
	})
}

func decodeAction(c *cli.Context) error {
	value, err := readValue(c)
	if err != nil {
		return err
	}

	engine, _, err := BuildEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	now := engine.Now()
	if at := c.Timestamp("at"); at != nil {
		now = *at
	}

	s, keyID, err := engine.DecodeKey(c.Context, value, now)
	if err != nil {
		if kind, ok := goSession.KindOf(err); ok {
			return cli.Exit("cookie rejected: "+kind.String(), 1)
		}
		return err
	}

	view := DecodedView{
		KeyID:     keyID,
		Retired:   engine.IsRetired(keyID),
		ExpiresAt: s.ExpiresAt,
		Values:    make(map[string]string, s.Len()),
	}
	for _, k := range s.Keys() {
		v, _ := s.GetBytes(k)
		view.Values[k] = printable(v)
	}
	return Print(c, view)
}

func readValue(c *cli.Context) (string, error) {
	arg := c.Args().First()
	if arg == "" {
		return "", cli.Exit("decode needs a cookie value or - for stdin", 2)
	}
	if arg != "-" {
		return arg, nil
	}
	line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// printable shows UTF-8 values as-is and anything else as base64.
func printable(v []byte) string {
	if utf8.Valid(v) {
		return string(v)
	}
	return "base64:" + base64.StdEncoding.EncodeToString(v)
}
