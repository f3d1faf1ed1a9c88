// Package config resolves the settings of a receiptcheck run.
//
// Every setting has a default, may be set in a vars file, and may be
// overridden by the environment variable of the same name. The vars file is
// YAML or JSON: either a flat map of variable names, or the k6 form
// {"environment": [{...}]} whose first entry is used. The camelCase names of
// the k6 load-test vars files are accepted as aliases.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/receiptcheck/internal/attachments"
	"github.com/roach88/receiptcheck/internal/datastore"
	"github.com/roach88/receiptcheck/internal/helpdesk"
	"github.com/roach88/receiptcheck/internal/steps"
)

// Backend drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Variable names.
const (
	HelpdeskURL     = "HELPDESK_URL"
	HelpdeskSubKey  = "HELPDESK_SUBKEY"
	Canary          = "canary"
	ServiceURI      = "SERVICE_URI"
	SubKey          = "SUBKEY"
	DetailsPath     = "ATTACHMENT_DETAILS_PATH"
	AttachmentPath  = "ATTACHMENT_PATH"
	PdfPath         = "ATTACHMENT_PDF_PATH"
	TokenizerURL    = "TOKENIZER_URL"
	TokenizerAPIKey = "TOKENIZER_API_KEY"
	DatastoreDriver = "DATASTORE_DRIVER"
	DatastoreURI    = "DATASTORE_URI"
	BizEventDB      = "BIZ_EVENT_COSMOS_DB_NAME"
	BizEventCont    = "BIZ_EVENT_COSMOS_DB_CONTAINER_NAME"
	ReceiptDB       = "RECEIPT_COSMOS_DB_NAME"
	ReceiptCont     = "RECEIPT_COSMOS_DB_CONTAINER_NAME"
	CartCont        = "RECEIPT_CART_COSMOS_DB_CONTAINER_NAME"
	ErrorCont       = "RECEIPT_ERROR_COSMOS_DB_CONTAINER_NAME"
	MessageCont     = "RECEIPT_MESSAGE_COSMOS_DB_CONTAINER_NAME"
	CartErrorCont   = "RECEIPT_CART_ERROR_COSMOS_DB_CONTAINER_NAME"
	CartMessageCont = "RECEIPT_CART_MESSAGE_COSMOS_DB_CONTAINER_NAME"
	BlobDriver      = "BLOB_STORAGE_DRIVER"
	BlobConnString  = "RECEIPTS_STORAGE_CONN_STRING"
	BlobContainer   = "BLOB_STORAGE_CONTAINER_NAME"
	AESSecretKey    = "AES_SECRET_KEY"
	AESSalt         = "AES_SALT"
	ScenarioTimeout = "SCENARIO_TIMEOUT"
	LoadReceiptID   = "LOAD_RECEIPT_ID"
	Environment     = "ENVIRONMENT_STRING"
)

type variable struct {
	name     string
	fallback string
	aliases  []string
	secret   bool
}

func variables() []variable {
	names := datastore.DefaultContainers()
	paths := attachments.DefaultPaths()

	vars := []variable{
		{name: HelpdeskURL},
		{name: HelpdeskSubKey, secret: true},
		{name: Canary},
		{name: ServiceURI, aliases: []string{"receiptServiceURIBasePath"}},
		{name: SubKey, aliases: []string{"SUBSCRIPTION_KEY"}, secret: true},
		{name: DetailsPath, fallback: paths.Details, aliases: []string{"receiptServiceGetAttachmentDetailsPath"}},
		{name: AttachmentPath, fallback: paths.Attachment, aliases: []string{"receiptServiceGetAttachmentPath"}},
		{name: PdfPath, fallback: paths.Pdf},
		{name: TokenizerURL, aliases: []string{"tokenizerUrl"}},
		{name: TokenizerAPIKey, secret: true},
		{name: DatastoreDriver, fallback: DriverSQLite},
		{name: DatastoreURI, fallback: "receiptcheck.db", aliases: []string{"receiptCosmosDBURI"}, secret: true},
		{name: BizEventDB, fallback: "db"},
		{name: BizEventCont, fallback: names.BizEvents},
		{name: ReceiptDB, fallback: "db", aliases: []string{"receiptDatabaseID"}},
		{name: ReceiptCont, fallback: names.Receipts, aliases: []string{"receiptContainerID"}},
		{name: CartCont, fallback: names.CartReceipts},
		{name: ErrorCont, fallback: names.ReceiptErrors},
		{name: MessageCont, fallback: names.ReceiptMessages},
		{name: CartErrorCont, fallback: names.CartReceiptErrors},
		{name: CartMessageCont, fallback: names.CartReceiptMessages},
		{name: BlobDriver, fallback: DriverSQLite},
		{name: BlobConnString, aliases: []string{"BLOB_STORAGE_CONN_STRING"}, secret: true},
		{name: BlobContainer, fallback: "pagopa-d-weu-receipts-azure-blob-receipt-st-attach", aliases: []string{"blobStorageContainerID"}},
		{name: AESSecretKey, secret: true},
		{name: AESSalt, secret: true},
		{name: ScenarioTimeout, fallback: steps.DefaultTimeout.String()},
		{name: LoadReceiptID, aliases: []string{"receiptTestId"}},
		{name: Environment, fallback: "local", aliases: []string{"env"}},
	}
	for _, ep := range helpdesk.EndpointNames() {
		vars = append(vars, variable{name: string(ep)})
	}
	return vars
}

// Config is a resolved configuration.
type Config struct {
	HelpdeskURL    string
	HelpdeskSubKey string
	Canary         bool
	Endpoints      map[helpdesk.Endpoint]string

	ServiceURI string
	SubKey     string
	Paths      attachments.Paths

	TokenizerURL    string
	TokenizerAPIKey string

	DatastoreDriver string
	DatastoreURI    string
	BizEventDB      string
	ReceiptDB       string
	Containers      datastore.Containers

	BlobDriver     string
	BlobConnString string
	BlobContainer  string

	AESSecretKey string
	AESSalt      string

	ScenarioTimeout time.Duration

	// LoadReceiptID names the receipt the load scenario seeds. Empty leaves
	// the choice to the command.
	LoadReceiptID string
	Environment   string

	values map[string]string
	secret map[string]bool
}

// Load resolves the configuration from defaults, the vars file at varsPath
// (skipped when empty) and getenv, in increasing precedence.
func Load(getenv func(string) string, varsPath string) (*Config, error) {
	vars := variables()
	values := make(map[string]string, len(vars))
	secret := make(map[string]bool)
	known := make(map[string]string)
	for _, v := range vars {
		values[v.name] = v.fallback
		known[v.name] = v.name
		for _, alias := range v.aliases {
			known[alias] = v.name
		}
		if v.secret {
			secret[v.name] = true
		}
	}

	if varsPath != "" {
		file, err := readVarsFile(varsPath)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(file))
		for k := range file {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			name, ok := known[k]
			if !ok {
				return nil, fmt.Errorf("vars file %s: unknown variable %q", varsPath, k)
			}
			values[name] = file[k]
		}
	}

	for _, v := range vars {
		if env := getenv(v.name); env != "" {
			values[v.name] = env
			continue
		}
		for _, alias := range v.aliases {
			if env := getenv(alias); env != "" {
				values[v.name] = env
				break
			}
		}
	}

	return build(values, secret)
}

func build(values map[string]string, secret map[string]bool) (*Config, error) {
	timeout, err := time.ParseDuration(values[ScenarioTimeout])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ScenarioTimeout, err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", ScenarioTimeout, timeout)
	}

	c := &Config{
		HelpdeskURL:    values[HelpdeskURL],
		HelpdeskSubKey: values[HelpdeskSubKey],
		Canary:         enabled(values[Canary]),
		Endpoints:      make(map[helpdesk.Endpoint]string),

		ServiceURI: values[ServiceURI],
		SubKey:     values[SubKey],
		Paths: attachments.Paths{
			Details:    values[DetailsPath],
			Attachment: values[AttachmentPath],
			Pdf:        values[PdfPath],
		},

		TokenizerURL:    values[TokenizerURL],
		TokenizerAPIKey: values[TokenizerAPIKey],

		DatastoreDriver: values[DatastoreDriver],
		DatastoreURI:    values[DatastoreURI],
		BizEventDB:      values[BizEventDB],
		ReceiptDB:       values[ReceiptDB],
		Containers: datastore.Containers{
			BizEvents:           values[BizEventCont],
			Receipts:            values[ReceiptCont],
			CartReceipts:        values[CartCont],
			ReceiptErrors:       values[ErrorCont],
			ReceiptMessages:     values[MessageCont],
			CartReceiptErrors:   values[CartErrorCont],
			CartReceiptMessages: values[CartMessageCont],
		},

		BlobDriver:     values[BlobDriver],
		BlobConnString: values[BlobConnString],
		BlobContainer:  values[BlobContainer],

		AESSecretKey: values[AESSecretKey],
		AESSalt:      values[AESSalt],

		ScenarioTimeout: timeout,

		LoadReceiptID: values[LoadReceiptID],
		Environment:   values[Environment],

		values: values,
		secret: secret,
	}
	for _, ep := range helpdesk.EndpointNames() {
		if v := values[string(ep)]; v != "" {
			c.Endpoints[ep] = v
		}
	}
	if c.BlobConnString == "" && c.BlobDriver == c.DatastoreDriver {
		c.BlobConnString = c.DatastoreURI
	}

	for name, driver := range map[string]string{DatastoreDriver: c.DatastoreDriver, BlobDriver: c.BlobDriver} {
		if driver != DriverSQLite && driver != DriverMongo {
			return nil, fmt.Errorf("%s: unknown driver %q (want %s or %s)", name, driver, DriverSQLite, DriverMongo)
		}
	}
	return c, nil
}

// enabled reports whether a flag variable is on. Any non-empty value other
// than a strconv false spelling ("false", "0", "f") turns it on, so canary=yes
// enables the header as the k6 and cucumber scripts did.
func enabled(v string) bool {
	if v == "" {
		return false
	}
	on, err := strconv.ParseBool(v)
	return on || err != nil
}

// Require returns an error naming every listed variable that is empty.
func (c *Config) Require(names ...string) error {
	var errs []error
	for _, name := range names {
		if c.values[name] == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	return errors.Join(errs...)
}

// LogValue logs the resolved variables with secrets masked.
func (c *Config) LogValue() slog.Value {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]slog.Attr, 0, len(names))
	for _, name := range names {
		v := c.values[name]
		if c.secret[name] && v != "" {
			v = "***"
		}
		attrs = append(attrs, slog.String(name, v))
	}
	return slog.GroupValue(attrs...)
}

func readVarsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vars file: %w", err)
	}

	var raw map[string]any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse vars file: %w", err)
	}

	if env, ok := raw["environment"]; ok {
		list, ok := env.([]any)
		if !ok || len(list) == 0 {
			return nil, fmt.Errorf("vars file %s: environment must be a non-empty list", path)
		}
		first, ok := list[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("vars file %s: environment[0] must be a map", path)
		}
		raw = first
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case map[string]any, []any:
			return nil, fmt.Errorf("vars file %s: %s must be a scalar", path, k)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}
