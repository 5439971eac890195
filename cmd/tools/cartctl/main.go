package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/noah-isme/forneria-pos/internal/app"
	"github.com/noah-isme/forneria-pos/internal/cart"
	"github.com/noah-isme/forneria-pos/internal/checkout"
	"github.com/noah-isme/forneria-pos/internal/config"
	"github.com/noah-isme/forneria-pos/internal/obs"
	"github.com/noah-isme/forneria-pos/internal/posapi"
	"github.com/noah-isme/forneria-pos/internal/pricing"
)

const usage = `usage: cartctl <command> [flags]

commands:
  list                          show the cart
  add -id ID -nombre N -precio P add one unit of a product
  remove -id ID                 drop a product from the cart
  clear                         empty the cart
  totals [-paid AMOUNT]         subtotal, IVA, total and change
  checkout [-paid AMOUNT] [-metodo M]
                                submit the cart to the backend
`

// cartctl operates on the same persisted cart as the terminal service.
// Exit code 0 = ok, 1 = command failed, 2 = usage or setup error.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		os.Exit(2)
	}
	logger := obs.NewLogger("console", envOrDefault("OBS_LOG_LEVEL", "warn"))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BackendTimeout+10*time.Second)
	defer cancel()

	deps, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		os.Exit(2)
	}
	err = run(ctx, deps, os.Args[1:], os.Stdout)
	if closeErr := deps.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

func run(ctx context.Context, deps *app.Dependencies, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		id     = fs.String("id", "", "product id")
		nombre = fs.String("nombre", "", "product name")
		precio = fs.String("precio", "0", "unit price")
		paid   = fs.String("paid", "", "amount paid")
		metodo = fs.String("metodo", "", "payment method")
	)
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	store := deps.Cart
	taxBps := pricing.EffectiveTaxBps(deps.Config.TaxRateBPS)
	switch cmd {
	case "list":
		printCart(out, store.Load(ctx), taxBps)
		return nil
	case "add":
		if strings.TrimSpace(*id) == "" {
			return fmt.Errorf("%w: -id is required", errUsage)
		}
		items, err := store.Add(ctx, *id, *nombre, cart.ParsePrice(*precio))
		if err != nil {
			return err
		}
		printCart(out, items, taxBps)
		return nil
	case "remove":
		if strings.TrimSpace(*id) == "" {
			return fmt.Errorf("%w: -id is required", errUsage)
		}
		items, err := store.Remove(ctx, *id)
		if err != nil {
			return err
		}
		printCart(out, items, taxBps)
		return nil
	case "clear":
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "carrito vacío")
		return nil
	case "totals":
		summary := pricing.Compute(cart.PricingItems(store.Load(ctx)), taxBps)
		printSummary(out, summary)
		if *paid != "" {
			fmt.Fprintf(out, "Vuelto:\t%s\n", pricing.FormatCLP(float64(pricing.Change(cart.ParsePrice(*paid), summary.Total))))
		}
		return nil
	case "checkout":
		in := checkout.Input{MetodoPago: *metodo}
		if *paid != "" {
			v := cart.ParsePrice(*paid)
			in.MontoPagado = &v
		}
		res, err := deps.Checkout.Submit(ctx, in)
		if err != nil {
			var apiErr *posapi.APIError
			switch {
			case errors.Is(err, checkout.ErrEmptyCart):
				return errors.New(checkout.MsgEmptyCart)
			case errors.As(err, &apiErr):
				return fmt.Errorf("Error: %s", apiErr.Detail)
			case errors.Is(err, posapi.ErrUnavailable):
				return fmt.Errorf("%s: %w", checkout.MsgUnavailable, err)
			}
			return err
		}
		fmt.Fprintln(out, res.Message)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func printCart(out io.Writer, items []cart.Item, taxBps int) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOMBRE\tPRECIO\tCANT\tSUBTOTAL")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", it.ID, it.Nombre, pricing.FormatCLP(it.Precio), it.Qty, pricing.FormatCLP(it.Subtotal()))
	}
	_ = tw.Flush()
	printSummary(out, pricing.Compute(cart.PricingItems(items), taxBps))
}

func printSummary(out io.Writer, s pricing.Summary) {
	fmt.Fprintf(out, "Subtotal:\t%s\n", pricing.FormatCLP(s.Subtotal))
	fmt.Fprintf(out, "IVA:\t%s\n", pricing.FormatCLP(float64(s.Tax)))
	fmt.Fprintf(out, "Total:\t%s\n", pricing.FormatCLP(float64(s.Total)))
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
