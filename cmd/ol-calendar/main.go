package main

import (
	"context"
	"log"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/viant/scy"
	"github.com/viant/scy/cred"
	_ "github.com/viant/scy/kms/blowfish"

	"github.com/santoshs/ol-calendar/config"
	"github.com/santoshs/ol-calendar/service"
)

// Options defines CLI flags for the ol-calendar tool.
type Options struct {
	Config   string `short:"c" long:"config" description:"Path to config.yaml (default: <user-config-dir>/ol-calendar/config.yaml)"`
	ClientID string `long:"client-id" description:"Azure AD application (client) ID"`
	TenantID string `long:"tenant-id" description:"Tenant ID or 'organizations'"`
	Login    bool   `long:"login" description:"Force interactive device login and exit"`
	Stdout   bool   `long:"stdout" description:"Print entries instead of writing the org file"`
	Args     struct {
		OrgFile string `positional-arg-name:"org-file" description:"Org file to merge calendar entries into"`
	} `positional-args:"yes"`
}

func main() {
	log.SetFlags(0)

	var opts Options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		os.Exit(2)
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Fatal(err)
	}
	// Apply flag and env overrides before the azure_ref fallback.
	if opts.ClientID == "" {
		opts.ClientID = envOr("OL_CALENDAR_CLIENT_ID", "")
	}
	if opts.TenantID == "" {
		opts.TenantID = envOr("OL_CALENDAR_TENANT_ID", "")
	}
	if opts.ClientID != "" {
		cfg.Azure.ClientID = opts.ClientID
	}
	if opts.TenantID != "" {
		cfg.Azure.TenantID = opts.TenantID
	}
	// If azure_ref is configured, derive missing values from the secret.
	if cfg.Azure.AzureRef != "" {
		resolveAzureRef(cfg)
	}
	if cfg.Azure.ClientID == "" {
		log.Fatal("missing client ID (set azure.client_id, --client-id or OL_CALENDAR_CLIENT_ID)")
	}

	svc := service.New(cfg)
	ctx := context.Background()
	if opts.Login {
		if err := svc.Login(ctx); err != nil {
			log.Fatal(err)
		}
		return
	}
	orgPath := opts.Args.OrgFile
	if orgPath == "" {
		orgPath = cfg.Org.File
	}
	if opts.Stdout {
		orgPath = ""
	}
	if err := svc.Run(ctx, orgPath); err != nil {
		log.Fatal(err)
	}
}

// resolveAzureRef loads a cred.Azure secret and fills in client/tenant
// ID not supplied elsewhere.
func resolveAzureRef(cfg *config.Config) {
	res := scy.EncodedResource(cfg.Azure.AzureRef).Decode(context.Background(), cred.Azure{})
	sec, err := scy.New().Load(context.Background(), res)
	if err != nil {
		log.Fatalf("failed to load azure_ref secret: %v", err)
	}
	az, ok := sec.Target.(*cred.Azure)
	if !ok {
		log.Fatal("azure_ref secret is not of type cred.Azure (expected JSON with ClientID, TenantID)")
	}
	if cfg.Azure.ClientID == "" && az.ClientID != "" {
		cfg.Azure.ClientID = az.ClientID
	}
	if (cfg.Azure.TenantID == "" || cfg.Azure.TenantID == "organizations") && az.TenantID != "" {
		cfg.Azure.TenantID = az.TenantID
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
