package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rl1809/cookie-tracker/internal/adapter/notify"
	"github.com/rl1809/cookie-tracker/internal/core/domain"
	"github.com/rl1809/cookie-tracker/internal/core/service"
	"github.com/rl1809/cookie-tracker/internal/port"
)

const dateLayout = "2006-01-02 15:04"

var errUsage = errors.New("usage: cookie-tracker <order|customers|summary|edit|note|complete|delete-order|delete-customer|remind> [flags]")

type app struct {
	orders       *service.OrderService
	queue        port.ReminderQueue
	pollInterval time.Duration
	log          zerolog.Logger
	out          io.Writer
	loc          *time.Location
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "order":
		return a.order(ctx, rest)
	case "customers":
		return a.customers(ctx, rest)
	case "summary":
		return a.summary(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "note":
		return a.note(ctx, rest)
	case "complete":
		return a.complete(ctx, rest)
	case "delete-order":
		return a.deleteOrder(ctx, rest)
	case "delete-customer":
		return a.deleteCustomer(ctx, rest)
	case "remind":
		return a.remind(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

// flavorFlag collects repeated -flavor "Name=qty" values.
type flavorFlag []domain.FlavorQuantity

func (f *flavorFlag) String() string {
	parts := make([]string, len(*f))
	for i, s := range *f {
		parts[i] = fmt.Sprintf("%s=%g", s.Flavor, s.Quantity)
	}
	return strings.Join(parts, ",")
}

func (f *flavorFlag) Set(value string) error {
	name, qty, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("flavor %q: want Name=quantity", value)
	}
	q, err := strconv.ParseFloat(strings.TrimSpace(qty), 64)
	if err != nil {
		return fmt.Errorf("flavor %q: %w", value, err)
	}
	*f = append(*f, domain.FlavorQuantity{Flavor: strings.TrimSpace(name), Quantity: q})
	return nil
}

func customerFlags(fs *flag.FlagSet) *service.CustomerDetails {
	var d service.CustomerDetails
	fs.StringVar(&d.Name, "name", "", "customer name")
	fs.StringVar(&d.Phone, "phone", "", "customer phone")
	fs.StringVar(&d.Email, "email", "", "customer email")
	fs.StringVar(&d.Address, "address", "", "delivery address")
	return &d
}

func (a *app) order(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	fs.SetOutput(a.out)
	details := customerFlags(fs)
	date := fs.String("date", "", "promised date, "+dateLayout)
	delivery := fs.Bool("delivery", false, "deliver instead of pickup")
	chocolateChip := fs.Float64("chocolate-chip", 0, "Chocolate Chip quantity")
	sprinkle := fs.Float64("sprinkle", 0, "Sprinkle quantity")
	smore := fs.Float64("smore", 0, "S'more quantity")
	oreo := fs.Float64("oreo", 0, "Oreo quantity")
	var extra flavorFlag
	fs.Var(&extra, "flavor", "additional flavor as Name=quantity, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	promised, err := a.parseDate(*date)
	if err != nil {
		return err
	}

	selections := []domain.FlavorQuantity{
		{Flavor: domain.FlavorChocolateChip, Quantity: *chocolateChip},
		{Flavor: domain.FlavorSprinkle, Quantity: *sprinkle},
		{Flavor: domain.FlavorSmore, Quantity: *smore},
		{Flavor: domain.FlavorOreo, Quantity: *oreo},
	}
	selections = append(selections, extra...)

	res, err := a.orders.SubmitOrder(ctx, service.SubmitOrderRequest{
		Customer:     *details,
		PromisedDate: promised,
		Delivery:     *delivery,
		Selections:   selections,
	})
	if err != nil {
		return err
	}

	who := "returning customer"
	if res.NewCustomer {
		who = "new customer"
	}
	fmt.Fprintf(a.out, "order %s saved for %s (%s)\n", res.Order.ID, res.Customer.Name, who)
	fmt.Fprintf(a.out, "%d cookies, %s, due %s\n",
		res.Order.TotalCookies(), res.Order.TotalCost(), res.Order.PromisedDate.Format(dateLayout))
	fmt.Fprintf(a.out, "customer %s total %s\n", res.Customer.ID, res.Customer.TotalCost())
	return nil
}

func (a *app) customers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("customers", flag.ContinueOnError)
	fs.SetOutput(a.out)
	search := fs.String("search", "", "filter by name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	customers, err := a.orders.ListCustomers(ctx, *search)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPHONE\tEMAIL\tOPEN ORDERS\tTOTAL")
	for _, c := range customers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			c.ID, c.Name, domain.FormatPhone(c.Phone), c.Email, len(c.InProgressOrders()), c.TotalCost())
	}
	return w.Flush()
}

func (a *app) summary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(a.out)
	customerID := fs.String("customer", "", "customer id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("customer", *customerID)
	if err != nil {
		return err
	}

	customer, err := a.orders.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	sum := customer.Summary()

	fmt.Fprintf(a.out, "%s  %s  %s\n", customer.Name, domain.FormatPhone(customer.Phone), customer.Email)
	if customer.Address != "" {
		fmt.Fprintln(a.out, customer.Address)
	}
	if customer.Note != "" {
		fmt.Fprintf(a.out, "note: %s\n", customer.Note)
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nDATE\tORDER\tMODE\tCOOKIES\tCOST")
	for _, g := range sum.ByDate {
		for _, o := range g.Orders {
			mode := "pickup"
			if o.Delivery {
				mode = "delivery"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				o.PromisedDate.Format(dateLayout), o.ID, mode, o.TotalCookies(), o.TotalCost())
		}
		fmt.Fprintf(w, "%s\t\tsubtotal\t%d\t%s\n", g.Date.Format(time.DateOnly), g.Cookies, g.Subtotal)
	}

	fmt.Fprintln(w, "\nFLAVOR\tQUANTITY\t\t\t")
	for _, f := range sum.ByFlavor {
		fmt.Fprintf(w, "%s\t%g\t\t\t\n", f.Flavor, f.Quantity)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\n%d cookies in progress, total %s\n", sum.TotalCookies, sum.TotalCost)
	if len(sum.Historical) > 0 {
		fmt.Fprintf(a.out, "%d completed orders, %s\n", len(sum.Historical), sum.HistoricalCost)
	}
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(a.out)
	customerID := fs.String("customer", "", "customer id")
	details := customerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("customer", *customerID)
	if err != nil {
		return err
	}

	customer, err := a.orders.UpdateCustomer(ctx, id, *details)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "customer %s updated\n", customer.ID)
	return nil
}

func (a *app) note(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("note", flag.ContinueOnError)
	fs.SetOutput(a.out)
	customerID := fs.String("customer", "", "customer id")
	text := fs.String("text", "", fmt.Sprintf("note, at most %d words", domain.MaxNoteWords))
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("customer", *customerID)
	if err != nil {
		return err
	}

	if err := a.orders.UpdateNote(ctx, id, *text); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "note saved (%d/%d words)\n", domain.NoteWordCount(*text), domain.MaxNoteWords)
	return nil
}

func (a *app) complete(ctx context.Context, args []string) error {
	customerID, orderID, err := a.orderTarget("complete", args)
	if err != nil {
		return err
	}
	if err := a.orders.CompleteOrder(ctx, customerID, orderID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "order %s completed\n", orderID)
	return nil
}

func (a *app) deleteOrder(ctx context.Context, args []string) error {
	customerID, orderID, err := a.orderTarget("delete-order", args)
	if err != nil {
		return err
	}
	if err := a.orders.DeleteOrder(ctx, customerID, orderID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "order %s deleted\n", orderID)
	return nil
}

func (a *app) deleteCustomer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-customer", flag.ContinueOnError)
	fs.SetOutput(a.out)
	customerID := fs.String("customer", "", "customer id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("customer", *customerID)
	if err != nil {
		return err
	}

	if err := a.orders.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "customer %s deleted\n", id)
	return nil
}

// remind delivers due reminders until ctx is cancelled.
func (a *app) remind(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remind", flag.ContinueOnError)
	fs.SetOutput(a.out)
	interval := fs.Duration("interval", a.pollInterval, "poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	worker := service.NewReminderWorker(a.queue, notify.LogNotifier{Logger: a.log}, *interval, a.log)
	a.log.Info().Dur("interval", *interval).Msg("reminder worker started")
	err := worker.Run(ctx)
	a.log.Info().Msg("reminder worker stopped")
	return err
}

func (a *app) orderTarget(name string, args []string) (uuid.UUID, uuid.UUID, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	customerID := fs.String("customer", "", "customer id")
	orderID := fs.String("order", "", "order id")
	if err := fs.Parse(args); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	cid, err := parseID("customer", *customerID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	oid, err := parseID("order", *orderID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return cid, oid, nil
}

func (a *app) parseDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, service.ErrPromisedDateRequired
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse -date: %w", err)
	}
	return t, nil
}

func parseID(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, fmt.Errorf("-%s: %w", name, err)
	}
	return id, nil
}
