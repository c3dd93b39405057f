// Command avatarctl uploads or deletes the avatar of a subname using a
// local wallet key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/layer-3/subkit/adapters/directory"
	"github.com/layer-3/subkit/adapters/metadata"
	"github.com/layer-3/subkit/adapters/signer"
	"github.com/layer-3/subkit/config"
	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/internal/metrics"
	"github.com/layer-3/subkit/internal/siwe"
	"github.com/layer-3/subkit/service"
)

const usage = `usage:
  avatarctl upload -subname <name> -network <mainnet|sepolia|holesky> -file <path>
  avatarctl delete -subname <name> -network <mainnet|sepolia|holesky>

The wallet key is read from AVATARCTL_PRIVATE_KEY.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := log.NewZapLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var out any
	switch os.Args[1] {
	case "upload":
		out, err = runUpload(ctx, cfg, logger, os.Args[2:])
	case "delete":
		out, err = runDelete(ctx, cfg, logger, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("avatarctl failed", "command", os.Args[1], "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to print result: %v\n", err)
		os.Exit(1)
	}
}

func runUpload(ctx context.Context, cfg *config.Config, lg log.Logger, args []string) (*core.UploadResult, error) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	subname := fs.String("subname", "", "full subname, e.g. alice.example.eth")
	network := fs.String("network", string(core.NetworkMainnet), "metadata network")
	path := fs.String("file", "", "path to the image file")
	_ = fs.Parse(args)

	if *path == "" {
		return nil, fmt.Errorf("-file is required")
	}

	svc, err := newAvatarService(cfg, lg, *network)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(*path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", *path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", *path, err)
	}
	contentType, content, err := core.SniffContentType(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", *path, err)
	}

	return svc.Upload(ctx, service.UploadParams{
		File: core.AvatarFile{
			Name:        filepath.Base(*path),
			ContentType: contentType,
			Size:        info.Size(),
			Content:     content,
		},
		Subname: *subname,
		Network: core.Network(*network),
	})
}

func runDelete(ctx context.Context, cfg *config.Config, lg log.Logger, args []string) (*core.DeleteResult, error) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	subname := fs.String("subname", "", "full subname, e.g. alice.example.eth")
	network := fs.String("network", string(core.NetworkMainnet), "metadata network")
	_ = fs.Parse(args)

	svc, err := newAvatarService(cfg, lg, *network)
	if err != nil {
		return nil, err
	}
	return svc.Delete(ctx, service.DeleteParams{
		Subname: *subname,
		Network: core.Network(*network),
	})
}

func newAvatarService(cfg *config.Config, lg log.Logger, networkName string) (*service.AvatarService, error) {
	network, err := core.ParseNetwork(networkName)
	if err != nil {
		return nil, err
	}

	key := os.Getenv("AVATARCTL_PRIVATE_KEY")
	if key == "" {
		return nil, fmt.Errorf("AVATARCTL_PRIVATE_KEY is not set")
	}
	wallet, err := signer.NewEthereumSigner(key, network.ChainID())
	if err != nil {
		return nil, err
	}

	m := metrics.Discard()
	client := metadata.NewClient(cfg.Metadata.BaseURL,
		metadata.WithTimeout(cfg.Metadata.Timeout),
		metadata.WithLogger(lg.Named("metadata")),
	)
	auth := service.NewAuthenticator(client, wallet,
		siwe.NewBuilder(cfg.SIWE.Domain, cfg.SIWE.URI, cfg.SIWE.Statement), lg, m)

	var opts []service.AvatarOption
	if cfg.Namespace.APIKey != "" {
		opts = append(opts, service.WithDirectory(
			directory.NewNamespaceClient(cfg.Namespace.BaseURL, cfg.Namespace.APIKey,
				directory.WithLogger(lg.Named("namespace")))))
	} else {
		lg.Warn("NAMESPACE_API_KEY not set, avatar text record will not be updated")
	}

	lg.Info("wallet loaded", "address", wallet.Address(), "network", network)
	return service.NewAvatarService(auth, client, lg, m, opts...), nil
}
