package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	SelectShop(ctx context.Context, args []string) error
	Shops(ctx context.Context) error
	AddProduct(ctx context.Context) error
	EditProduct(ctx context.Context, args []string) error
	Sale(ctx context.Context) error
	Search(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Variants(ctx context.Context, args []string) error
	Seed(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	Resync(ctx context.Context) error
	Status(ctx context.Context) error
}

const helpText = `Available commands:
  login                     log into a shop (makes it current)
  logout                    forget the saved shop token
  shop <name>               switch the current shop
  shops                     list shops known from the last sync
  add                       create a product
  edit <id>                 change a product and its price in the current shop
  sale                      record a sale
  search <term>             find products by barcode, brand, category or flavor
  show <id>                 show one product
  variants <barcode>        list products sharing a barcode, locally and remotely
  seed <barcode> <id>       list an existing variant in the current shop
  history [n]               last sales of the current shop
  sync                      synchronize now
  resync                    make the next sync a full one, then synchronize
  status                    show shop, mode and pending work
  exit | quit               leave the program`

// usage is printed when a command misses its arguments.
var usage = map[string]string{
	"shop":     "Usage: shop <name>",
	"edit":     "Usage: edit <id>",
	"search":   "Usage: search <term>",
	"show":     "Usage: show <id>",
	"variants": "Usage: variants <barcode>",
	"seed":     "Usage: seed <barcode> <id>",
}

// minArgs is the number of arguments each command requires.
var minArgs = map[string]int{
	"shop":     1,
	"edit":     1,
	"search":   1,
	"show":     1,
	"variants": 1,
	"seed":     2,
}

// runREPL starts a read–eval–print loop for the POS CLI.
//
// It reads a line, parses the first token as the command, and dispatches to
// methods on 'a'. The loop exits on EOF or when the user types "exit" or
// "quit". The prompt shows the current status (from statusFn).
//
// Errors returned by command handlers are printed and otherwise ignored so a
// failing command never ends the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pos %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if n, ok := minArgs[cmd]; ok && len(args) < n {
			printlnFn(usage[cmd])
			continue
		}

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "shop":
			cmdErr = a.SelectShop(ctx, args)

		case "shops":
			cmdErr = a.Shops(ctx)

		case "add":
			cmdErr = a.AddProduct(ctx)

		case "edit":
			cmdErr = a.EditProduct(ctx, args)

		case "sale":
			cmdErr = a.Sale(ctx)

		case "search":
			cmdErr = a.Search(ctx, args)

		case "show":
			cmdErr = a.Show(ctx, args)

		case "variants":
			cmdErr = a.Variants(ctx, args)

		case "seed":
			cmdErr = a.Seed(ctx, args)

		case "history":
			cmdErr = a.History(ctx, args)

		case "sync":
			cmdErr = a.Sync(ctx)

		case "resync":
			cmdErr = a.Resync(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
