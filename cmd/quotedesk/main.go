package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"quotedesk/internal"
	"quotedesk/internal/ai"
	"quotedesk/internal/config"
	"quotedesk/internal/connectors"
	gmailconnector "quotedesk/internal/connectors/gmail"
	imapconnector "quotedesk/internal/connectors/imap"
	"quotedesk/internal/docs"
	"quotedesk/internal/export"
	"quotedesk/internal/flow"
	"quotedesk/internal/formula"
	"quotedesk/internal/logging"
	"quotedesk/internal/scheduler"
	"quotedesk/internal/storage"
	"quotedesk/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logging.Setup(cfg.LogLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx := context.Background()
	cmd := os.Args[1]
	switch cmd {
	case "business:add":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "business name")
		email := fs.String("email", "", "quote inbox address")
		inbox := fs.String("inbox", "", "secondary inbox address")
		provider := fs.String("provider", "imap", "imap|gmail")
		interval := fs.Int("interval", cfg.DefaultPollIntervalMins, "poll interval minutes")
		_ = fs.Parse(os.Args[2:])
		if *name == "" || *email == "" {
			must(fmt.Errorf("--name and --email are required"))
		}
		record := internal.BusinessRecord{
			Name: *name, Email: strings.ToLower(*email), Provider: *provider,
			PollIntervalMins: *interval, Active: true,
		}
		if *inbox != "" {
			record.InboxEmail = util.StringPtr(strings.ToLower(*inbox))
		}
		id, err := db.InsertBusiness(record)
		must(err)
		fmt.Printf("business added id=%d name=%q\n", id, *name)

	case "business:deactivate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int64("id", 0, "business id")
		_ = fs.Parse(os.Args[2:])
		if *id == 0 {
			must(fmt.Errorf("--id is required"))
		}
		must(db.SetBusinessActive(*id, false))
		fmt.Printf("business %d deactivated\n", *id)

	case "product:add":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		business := fs.Int64("business", 0, "business id")
		name := fs.String("name", "", "product name")
		formulaSrc := fs.String("formula", "", "pricing formula (optional)")
		rate := fs.Float64("rate", cfg.BaseRatePerSqIn, "rate per square inch")
		minOrder := fs.Float64("minOrder", cfg.MinOrderAmount, "minimum order amount")
		_ = fs.Parse(os.Args[2:])
		if *business == 0 || *name == "" {
			must(fmt.Errorf("--business and --name are required"))
		}
		record := internal.ProductRecord{
			BusinessID: *business, Name: *name,
			RatePerSqIn: *rate, MinOrderAmt: *minOrder, Active: true,
		}
		if strings.TrimSpace(*formulaSrc) != "" {
			_, err := formula.Compile(*formulaSrc)
			must(err)
			record.Formula = formulaSrc
		}
		id, err := db.InsertProduct(record)
		must(err)
		fmt.Printf("product added id=%d name=%q\n", id, *name)

	case "formula:check":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		src := fs.String("formula", "", "formula source")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*src) == "" {
			must(fmt.Errorf("--formula is required"))
		}
		compiled, err := formula.Compile(*src)
		must(err)
		fmt.Printf("ok: variables used: %s\n", strings.Join(compiled.Vars, ", "))

	case "pricing:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		business := fs.Int64("business", 0, "business id")
		file := fs.String("file", "", "pricing document (csv|xlsx|pdf)")
		_ = fs.Parse(os.Args[2:])
		if *business == 0 || *file == "" {
			must(fmt.Errorf("--business and --file are required"))
		}
		importer := docs.NewImporter(db, cfg)
		result, err := importer.ImportFile(*business, *file)
		must(err)
		fmt.Printf("import done parsed=%d imported=%d rejected=%d\n", result.Parsed, result.Imported, len(result.Rejected))
		for _, rej := range result.Rejected {
			fmt.Printf("  line %d %q: %s\n", rej.LineNo, rej.Name, rej.Reason)
		}

	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "imap", "imap|gmail")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", cfg.PollFetchMax, "max messages")
		business := fs.Int64("business", 0, "business id (0 = resolve from To:)")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*business, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d parsed=%d skipped=%d\n",
			*provider, result.Fetched, result.Parsed, result.Skipped)

	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "imap", "imap|gmail")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", cfg.PollFetchMax, "max messages")
		business := fs.Int64("business", 0, "business id (0 = resolve from To:)")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*business, *label, *max)
		must(err)
		processor := flow.NewProcessor(db, cfg, ai.NewClient(cfg))
		processed := 0
		for _, msg := range result.Messages {
			res, err := processor.ProcessMessage(ctx, msg)
			must(err)
			if !res.Skipped {
				processed++
				fmt.Printf("thread=%d intent=%s state=%s action=%s\n", res.ThreadID, res.Intent, res.State, res.Action)
			}
		}
		fmt.Printf("mail process done fetched=%d processed=%d\n", result.Fetched, processed)

	case "quote:direct":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		business := fs.Int64("business", 0, "business id")
		product := fs.String("product", "", "product name")
		length := fs.Float64("length", 0, "length inches")
		width := fs.Float64("width", 0, "width inches")
		email := fs.String("email", "", "customer email")
		name := fs.String("name", "", "customer name")
		_ = fs.Parse(os.Args[2:])
		if *business == 0 || *product == "" || *length <= 0 || *width <= 0 || *email == "" {
			must(fmt.Errorf("--business --product --length --width --email are required"))
		}
		req := flow.DirectRequest{
			BusinessID: *business, ProductName: *product,
			LengthInches: *length, WidthInches: *width, CustomerEmail: *email,
		}
		if *name != "" {
			req.CustomerName = name
		}
		processor := flow.NewProcessor(db, cfg, nil)
		res, err := processor.ProcessDirect(ctx, req)
		must(err)
		if res.Quote == nil {
			must(fmt.Errorf("pricing failed: %s", res.ManualReason))
		}
		fmt.Printf("quote %s total=$%.2f thread=%d\n", res.Quote.QuoteNumber, res.Quote.TotalPrice, res.ThreadID)

	case "thread:close":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int64("id", 0, "thread id")
		_ = fs.Parse(os.Args[2:])
		if *id == 0 {
			must(fmt.Errorf("--id is required"))
		}
		processor := flow.NewProcessor(db, cfg, nil)
		must(processor.CloseThread(*id))
		fmt.Printf("thread %d closed\n", *id)

	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		business := fs.Int64("business", 0, "business id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *business == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--business and --out are required"))
		}
		rows, err := db.GetQuoteExportRows(*business)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no quotes for business=%d", *business))
		}
		must(export.QuotesToXLSX(rows, *out))
		fmt.Printf("exported %d quotes to %s\n", len(rows), *out)

	case "poll:once":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		business := fs.Int64("business", 0, "business id")
		_ = fs.Parse(os.Args[2:])
		if *business == 0 {
			must(fmt.Errorf("--business is required"))
		}
		record, err := db.GetBusiness(*business)
		must(err)
		if record == nil {
			must(fmt.Errorf("business not found: id=%d", *business))
		}
		processor := flow.NewProcessor(db, cfg, ai.NewClient(cfg))
		poller := scheduler.NewPoller(db, cfg, processor, func(provider string) (connectors.MailConnector, error) {
			return makeConnector(cfg, provider)
		})
		poller.Poll(ctx, *record)

	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: quotedesk <command>")
	fmt.Println("commands:")
	fmt.Println("  business:add --name=... --email=... [--inbox=...] [--provider=imap|gmail] [--interval=10]")
	fmt.Println("  business:deactivate --id=1")
	fmt.Println("  product:add --business=1 --name=... [--formula=...] [--rate=0.05] [--minOrder=50]")
	fmt.Println("  formula:check --formula='area * rate'")
	fmt.Println("  pricing:import --business=1 --file=./prices.csv")
	fmt.Println("  mail:fetch --provider=imap|gmail --label=INBOX [--max=20] [--business=1]")
	fmt.Println("  mail:process --provider=imap|gmail --label=INBOX [--max=20] [--business=1]")
	fmt.Println("  quote:direct --business=1 --product=... --length=48 --width=36 --email=...")
	fmt.Println("  thread:close --id=1")
	fmt.Println("  export:xlsx --business=1 --out=./out/quotes.xlsx")
	fmt.Println("  poll:once --business=1")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
