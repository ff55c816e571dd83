package command

import (
	"fmt"
	"os"

	"github.com/MrEthical07/goSession/config"
	"github.com/MrEthical07/goSession/keyring"
	"github.com/MrEthical07/goSession/protect"
	"github.com/urfave/cli/v2"
)

// KeyView is a key entry in the shape the configuration file expects.
type KeyView struct {
	ID     string `json:"id" yaml:"id"`
	Secret string `json:"secret" yaml:"secret"`
}

// KeysView lists generated keys for one strategy.
type KeysView struct {
	Mode      string    `json:"mode" yaml:"mode"`
	Algorithm string    `json:"algorithm" yaml:"algorithm"`
	Keys      []KeyView `json:"keys" yaml:"keys"`
}

// KeyCommand returns the key subcommand group.
func KeyCommand() *cli.Command {
	strategyFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "mode",
			Usage: "Cookie mode: signed, encrypted",
			Value: "signed",
		},
		&cli.StringFlag{
			Name:  "algorithm",
			Usage: "MAC algorithm or AEAD cipher (default depends on mode)",
		},
	}

	return &cli.Command{
		Name:  "key",
		Usage: "Key material",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate random keys sized for a mode and algorithm",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Key identifier (default: random UUID)",
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of keys",
						Value: 1,
					},
				}, strategyFlags...),
				Action: keyGenerate,
			},
			{
				Name:  "derive",
				Usage: "Derive a key from a passphrase",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Key identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "kdf",
						Usage: "Key derivation: scrypt, argon2id, hkdf",
						Value: config.KDFScrypt,
					},
					&cli.StringFlag{
						Name:  "passphrase-env",
						Usage: "Environment variable holding the passphrase",
						Value: "GOSESSION_PASSPHRASE",
					},
					&cli.StringFlag{
						Name:     "salt",
						Usage:    "Salt (at least 16 bytes)",
						Required: true,
					},
				}, strategyFlags...),
				Action: keyDerive,
			},
		},
	}
}

func strategyFromFlags(c *cli.Context) (protect.Strategy, error) {
	mode, err := protect.ParseMode(c.String("mode"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	strategy, err := protect.New(mode, c.String("algorithm"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	return strategy, nil
}

func keyGenerate(c *cli.Context) error {
	strategy, err := strategyFromFlags(c)
	if err != nil {
		return err
	}
	count := c.Int("count")
	if count <= 0 {
		return cli.Exit("--count must be > 0", 2)
	}
	id := c.String("id")
	if id != "" && count > 1 {
		return cli.Exit("--id cannot be combined with --count > 1", 2)
	}

	view := KeysView{
		Mode:      strategy.Mode().String(),
		Algorithm: strategy.Algorithm(),
	}
	for i := 0; i < count; i++ {
		key, err := keyring.Generate(strategy.Purpose(), strategy.KeySize())
		if err != nil {
			return err
		}
		if id != "" {
			if key, err = keyring.NewKey(id, strategy.Purpose(), key.Secret()); err != nil {
				return err
			}
		}
		view.Keys = append(view.Keys, KeyView{
			ID:     key.ID(),
			Secret: config.EncodeSecret(key.Bytes()),
		})
	}
	return Print(c, view)
}

func keyDerive(c *cli.Context) error {
	strategy, err := strategyFromFlags(c)
	if err != nil {
		return err
	}
	passphrase := os.Getenv(c.String("passphrase-env"))
	if passphrase == "" {
		return cli.Exit(fmt.Sprintf("%s is empty", c.String("passphrase-env")), 2)
	}

	entry := config.KeyFile{
		ID:         c.String("id"),
		Passphrase: passphrase,
		Salt:       c.String("salt"),
		KDF:        c.String("kdf"),
	}
	key, err := entry.Build(strategy.Purpose(), strategy.KeySize())
	if err != nil {
		return err
	}

	return Print(c, KeysView{
		Mode:      strategy.Mode().String(),
		Algorithm: strategy.Algorithm(),
		Keys: []KeyView{{
			ID:     key.ID(),
			Secret: config.EncodeSecret(key.Bytes()),
		}},
	})
}
