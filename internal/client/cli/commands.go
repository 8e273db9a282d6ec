package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/shopspring/decimal"
)

const (
	searchLimit    = 50
	defaultHistory = 20
)

// getPassword is a test seam over GetPassword.
var getPassword = GetPassword

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) currentShop(ctx context.Context) (string, error) {
	shop, err := a.pos.CurrentShop(ctx)
	if err != nil {
		return "", err
	}
	if shop == "" {
		return "", common.ErrNoCurrentShop
	}
	return shop, nil
}

// Login asks for a shop and its password, stores the token and queues a
// first sync of that shop.
func (a *App) Login(ctx context.Context) error {
	shop, err := a.ask("Shop name")
	if err != nil {
		return err
	}
	if shop == "" {
		return errors.New("empty shop name")
	}
	pw, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer clear(pw)

	if err := a.auth.Login(ctx, shop, string(pw)); err != nil {
		return err
	}
	a.setMode(ModeOnline)
	printlnFn("Logged into", shop)
	a.scheduler.Trigger()
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	printlnFn("Logged out. Sales and edits are still recorded locally.")
	return nil
}

// SelectShop switches the current shop. The next sync runs in full mode.
func (a *App) SelectShop(ctx context.Context, args []string) error {
	shop := strings.Join(args, " ")
	known, err := a.local.CachedShops(ctx)
	if err != nil {
		return err
	}
	if len(known) > 0 && !contains(known, shop) {
		printlnFn("Warning: shop", shop, "was not listed by the last sync")
	}
	if err := a.pos.SetCurrentShop(ctx, shop); err != nil {
		return err
	}
	printlnFn("Current shop:", shop)
	return nil
}

func (a *App) Shops(ctx context.Context) error {
	shops, err := a.local.CachedShops(ctx)
	if err != nil {
		return err
	}
	if len(shops) == 0 {
		printlnFn("No shops known yet, sync first")
		return nil
	}
	current, _ := a.pos.CurrentShop(ctx)
	for _, s := range shops {
		mark := " "
		if s == current {
			mark = "*"
		}
		printlnFn(mark, s)
	}
	return nil
}

// readProductInfo prompts for product fields, offering cur's values as
// defaults.
func (a *App) readProductInfo(cur *models.LocalProduct) (models.ProductInfo, error) {
	var def models.LocalProduct
	if cur != nil {
		def = *cur
	}

	var info models.ProductInfo
	var err error
	if info.Barcode, err = GetTextDefault(a.reader, "Barcode", def.Barcode, a.out); err != nil {
		return info, err
	}
	if info.Brand, err = GetTextDefault(a.reader, "Brand", def.Brand, a.out); err != nil {
		return info, err
	}
	if info.Category, err = GetTextDefault(a.reader, "Category", def.Category, a.out); err != nil {
		return info, err
	}
	if info.Flavor, err = GetTextDefault(a.reader, "Flavor", def.Flavor, a.out); err != nil {
		return info, err
	}

	prompt := "Price"
	if def.Price != nil {
		prompt = fmt.Sprintf("Price [%s]", def.Price.StringFixed(2))
	}
	raw, err := a.ask(prompt)
	if err != nil {
		return info, err
	}
	if raw == "" && def.Price != nil {
		info.Price = *def.Price
		return info, nil
	}
	info.Price, err = decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return info, fmt.Errorf("invalid amount %q", raw)
	}
	return info, nil
}

// AddProduct creates a product priced in the current shop.
func (a *App) AddProduct(ctx context.Context) error {
	if _, err := a.currentShop(ctx); err != nil {
		return err
	}
	info, err := a.readProductInfo(nil)
	if err != nil {
		return err
	}
	id, err := a.pos.AddProduct(ctx, info, "")
	if err != nil {
		return err
	}
	printlnFn("Product saved locally:", id)
	return nil
}

// EditProduct changes a product's fields and its price in the current shop.
func (a *App) EditProduct(ctx context.Context, args []string) error {
	if _, err := a.currentShop(ctx); err != nil {
		return err
	}
	cur, err := a.pos.GetByID(ctx, args[0])
	if err != nil {
		return err
	}
	info, err := a.readProductInfo(cur)
	if err != nil {
		return err
	}
	info.ProductID = cur.ID
	if _, err := a.pos.AddProduct(ctx, info, ""); err != nil {
		return err
	}
	printlnFn("Product updated locally:", cur.ID)
	return nil
}

// pickPriced chooses the variant sold for barcode among the local rows.
func (a *App) pickPriced(rows []models.LocalProduct) (*models.LocalProduct, error) {
	var priced []models.LocalProduct
	for _, p := range rows {
		if p.Price != nil {
			priced = append(priced, p)
		}
	}
	switch len(priced) {
	case 0:
		return nil, nil
	case 1:
		return &priced[0], nil
	}

	for i, p := range priced {
		printlnFn(fmt.Sprintf("  %d) %s", i+1, formatProductLine(p)))
	}
	raw, err := a.ask("Variant number")
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > len(priced) {
		return nil, fmt.Errorf("invalid choice %q", raw)
	}
	return &priced[n-1], nil
}

// Sale records a sale from scanned line items. It never needs the network.
func (a *App) Sale(ctx context.Context) error {
	if _, err := a.currentShop(ctx); err != nil {
		return err
	}

	var items []models.LineItem
	total := decimal.Zero
	for {
		line, err := a.ask("Item (barcode [quantity]), empty line to finish")
		if err != nil {
			return err
		}
		if line == "" {
			break
		}
		barcode, qty, err := ParseLineItem(line)
		if err != nil {
			printlnFn("Error:", err)
			continue
		}

		rows, err := a.local.GetByBarcode(ctx, barcode)
		if err != nil {
			return err
		}
		item := models.LineItem{Barcode: barcode, Quantity: qty}
		p, err := a.pickPriced(rows)
		if err != nil {
			printlnFn("Error:", err)
			continue
		}
		if p != nil {
			item.ProductID = p.ID
			item.Description = describe(p.ProductFields)
			item.UnitPrice = *p.Price
		} else {
			printlnFn("No price for", barcode, "in this shop")
			if item.UnitPrice, err = GetDecimal(a.reader, "Unit price", a.out); err != nil {
				printlnFn("Error:", err)
				continue
			}
		}

		items = append(items, item)
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(qty))))
		printlnFn(fmt.Sprintf("  %d x %s = %s (total %s)", qty, item.UnitPrice.StringFixed(2),
			item.UnitPrice.Mul(decimal.NewFromInt(int64(qty))).StringFixed(2), total.StringFixed(2)))
	}
	if len(items) == 0 {
		printlnFn("Sale cancelled")
		return nil
	}

	finalRaw, err := GetTextDefault(a.reader, "Final price", total.StringFixed(2), a.out)
	if err != nil {
		return err
	}
	final, err := decimal.NewFromString(strings.ReplaceAll(finalRaw, ",", "."))
	if err != nil {
		return fmt.Errorf("invalid amount %q", finalRaw)
	}
	method, err := GetTextDefault(a.reader, "Payment method (cash, card, pix)", "cash", a.out)
	if err != nil {
		return err
	}

	sale, err := a.pos.RecordSale(ctx, final, method, items)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Sale recorded at %s: %s (%s)",
		sale.Timestamp.Local().Format("2006-01-02 15:04:05"), sale.FinalPrice.StringFixed(2), sale.PaymentMethod))
	return nil
}

func (a *App) Search(ctx context.Context, args []string) error {
	found, err := a.pos.Search(ctx, strings.Join(args, " "), searchLimit)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		printlnFn("Nothing found")
		return nil
	}
	for _, p := range found {
		printlnFn(formatProductLine(p))
	}
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	p, err := a.pos.GetByID(ctx, args[0])
	if err != nil {
		return err
	}
	printlnFn(formatProduct(*p))
	return nil
}

// Variants lists local variants of a barcode and, when online, the remote
// ones not cached yet.
func (a *App) Variants(ctx context.Context, args []string) error {
	v, err := a.pos.Variants(ctx, args[0])
	if err != nil {
		return err
	}
	printlnFn("Local:")
	if len(v.Local) == 0 {
		printlnFn("  none")
	}
	for _, p := range v.Local {
		printlnFn("  " + formatProductLine(p))
	}
	if v.Offline {
		printlnFn("Remote: unavailable offline")
		return nil
	}
	printlnFn("Remote:")
	if len(v.Remote) == 0 {
		printlnFn("  none")
	}
	for _, p := range v.Remote {
		printlnFn(fmt.Sprintf("  %s  %s  %s", p.ID, p.Barcode, describe(p.ProductFields)))
	}
	return nil
}

// Seed lists an existing variant in the current shop at a new price.
func (a *App) Seed(ctx context.Context, args []string) error {
	if _, err := a.currentShop(ctx); err != nil {
		return err
	}
	price, err := GetDecimal(a.reader, "Price", a.out)
	if err != nil {
		return err
	}
	id, err := a.pos.SeedFromVariant(ctx, args[0], args[1], "", price)
	if err != nil {
		return err
	}
	printlnFn("Product listed locally:", id)
	return nil
}

func (a *App) History(ctx context.Context, args []string) error {
	limit := defaultHistory
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid count %q", args[0])
		}
		limit = n
	}
	sales, err := a.pos.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(sales) == 0 {
		printlnFn("No sales yet")
		return nil
	}
	for _, s := range sales {
		printlnFn(fmt.Sprintf("%s  %10s  %-6s  %s",
			s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.FinalPrice, s.PaymentMethod, s.SyncStatus))
	}
	return nil
}

// Sync queues a run on the scheduler; the result is printed when it ends.
func (a *App) Sync(ctx context.Context) error {
	if _, err := a.currentShop(ctx); err != nil {
		return err
	}
	if a.scheduler.Trigger() {
		printlnFn("Sync queued")
	} else {
		printlnFn("Sync already queued")
	}
	return nil
}

// Resync drops the cursor so the next run downloads the whole catalog.
func (a *App) Resync(ctx context.Context) error {
	if err := a.engine.ResetCursor(ctx); err != nil {
		return err
	}
	return a.Sync(ctx)
}

func (a *App) Status(ctx context.Context) error {
	shop, err := a.pos.CurrentShop(ctx)
	if err != nil {
		return err
	}
	if shop == "" {
		shop = "-"
	}
	pending, badSales, err := a.local.ListPendingSales(ctx)
	if err != nil {
		return err
	}
	modified, badProducts, err := a.local.ListModified(ctx)
	if err != nil {
		return err
	}
	cursor, err := a.local.Cursor(ctx, shop)
	if err != nil {
		return err
	}
	last := "never (next sync is a full one)"
	if cursor != nil {
		last = cursor.Local().Format("2006-01-02 15:04:05")
	}

	printlnFn("Shop:             ", shop)
	printlnFn("Mode:             ", a.getMode())
	printlnFn("Pending sales:    ", len(pending))
	printlnFn("Modified products:", len(modified))
	printlnFn("Last sync:        ", last)
	if n := len(badSales) + len(badProducts); n > 0 {
		printlnFn("Unreadable rows:  ", n)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func describe(f models.ProductFields) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{f.Brand, f.Category, f.Flavor} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " / ")
}

func formatPrice(p *decimal.Decimal) string {
	if p == nil {
		return "-"
	}
	return p.StringFixed(2)
}

func formatProductLine(p models.LocalProduct) string {
	line := fmt.Sprintf("%s  %-14s %8s  %s", p.ID, p.Barcode, formatPrice(p.Price), describe(p.ProductFields))
	if p.SyncStatus == models.StatusModified {
		line += "  (not synced)"
	}
	return line
}

func formatProduct(p models.LocalProduct) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:       %s\n", p.ID)
	fmt.Fprintf(&b, "Barcode:  %s\n", p.Barcode)
	fmt.Fprintf(&b, "Brand:    %s\n", p.Brand)
	fmt.Fprintf(&b, "Category: %s\n", p.Category)
	fmt.Fprintf(&b, "Flavor:   %s\n", p.Flavor)
	fmt.Fprintf(&b, "Price:    %s\n", formatPrice(p.Price))
	fmt.Fprintf(&b, "Status:   %s", p.SyncStatus)

	shops := make([]string, 0, len(p.Prices))
	for s := range p.Prices {
		shops = append(shops, s)
	}
	sort.Strings(shops)
	for _, s := range shops {
		fmt.Fprintf(&b, "\n  %-20s %s", s, p.Prices[s].StringFixed(2))
	}
	return b.String()
}
