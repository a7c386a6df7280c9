package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrushidany/scoop-pos-admin-sub001/internal/api"
)

// ListFlags are shared by every collection command.
type ListFlags struct {
	ClientFlags
	Page     int `help:"Page number" default:"1"`
	PageSize int `help:"Items per page" default:"20"`
}

func (l *ListFlags) params() api.ListParams {
	return api.ListParams{Page: l.Page, PageSize: l.PageSize}
}

func (l *ListFlags) setup(globals *Globals) (*api.Client, error) {
	sessions, err := newSessionManager(&l.ClientFlags)
	if err != nil {
		return nil, err
	}

	if err := requireSession(sessions); err != nil {
		return nil, err
	}

	return newAPIClient(&l.ClientFlags, globals, sessions), nil
}

type OverviewCmd struct {
	ClientFlags
}

func (o *OverviewCmd) Run(ctx context.Context, globals *Globals) error {
	sessions, err := newSessionManager(&o.ClientFlags)
	if err != nil {
		return err
	}
	if err := requireSession(sessions); err != nil {
		return err
	}

	client := newAPIClient(&o.ClientFlags, globals, sessions)

	overview, err := client.Overview(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch overview: %w", err)
	}

	fmt.Printf("Users:     %d\n", overview.Users)
	fmt.Printf("Stores:    %d\n", overview.Stores)
	fmt.Printf("Devices:   %d\n", overview.Devices)
	fmt.Printf("Operators: %d\n", overview.Operators)

	return nil
}

type UsersCmd struct {
	ListFlags
}

func (u *UsersCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := u.setup(globals)
	if err != nil {
		return err
	}

	page, err := client.ListUsers(ctx, u.params())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	fmt.Printf("%-36s %-25s %-30s %-6s %-6s\n", "ID", "Name", "Email", "Admin", "Active")
	fmt.Println(strings.Repeat("-", 105))
	for _, user := range page.Items {
		fmt.Printf("%-36s %-25s %-30s %-6t %-6t\n", user.ID, user.Name, user.Email, user.Admin, user.Active)
	}
	printPageFooter(page.Total, page.Page, len(page.Items))

	return nil
}

type StoresCmd struct {
	ListFlags
}

func (s *StoresCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := s.setup(globals)
	if err != nil {
		return err
	}

	page, err := client.ListStores(ctx, s.params())
	if err != nil {
		return fmt.Errorf("failed to list stores: %w", err)
	}

	fmt.Printf("%-36s %-25s %-30s %-6s\n", "ID", "Name", "Address", "Active")
	fmt.Println(strings.Repeat("-", 100))
	for _, store := range page.Items {
		fmt.Printf("%-36s %-25s %-30s %-6t\n", store.ID, store.Name, store.Address, store.Active)
	}
	printPageFooter(page.Total, page.Page, len(page.Items))

	return nil
}

type DevicesCmd struct {
	ListFlags
}

func (d *DevicesCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := d.setup(globals)
	if err != nil {
		return err
	}

	page, err := client.ListDevices(ctx, d.params())
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	fmt.Printf("%-36s %-20s %-15s %-36s %-6s\n", "ID", "Serial", "Model", "Store", "Active")
	fmt.Println(strings.Repeat("-", 116))
	for _, device := range page.Items {
		fmt.Printf("%-36s %-20s %-15s %-36s %-6t\n",
			device.ID, device.SerialNumber, device.Model, device.StoreID, device.Active)
	}
	printPageFooter(page.Total, page.Page, len(page.Items))

	return nil
}

type OperatorsCmd struct {
	ListFlags
}

func (o *OperatorsCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := o.setup(globals)
	if err != nil {
		return err
	}

	page, err := client.ListOperators(ctx, o.params())
	if err != nil {
		return fmt.Errorf("failed to list operators: %w", err)
	}

	fmt.Printf("%-36s %-25s %-10s %-6s\n", "ID", "Name", "Code", "Active")
	fmt.Println(strings.Repeat("-", 80))
	for _, operator := range page.Items {
		fmt.Printf("%-36s %-25s %-10s %-6t\n", operator.ID, operator.Name, operator.Code, operator.Active)
	}
	printPageFooter(page.Total, page.Page, len(page.Items))

	return nil
}

type PricesCmd struct {
	ListFlags
}

func (p *PricesCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := p.setup(globals)
	if err != nil {
		return err
	}

	page, err := client.ListLicensePrices(ctx, p.params())
	if err != nil {
		return fmt.Errorf("failed to list license prices: %w", err)
	}

	fmt.Printf("%-36s %-25s %10s %-8s %-6s\n", "ID", "Name", "Price", "Currency", "Months")
	fmt.Println(strings.Repeat("-", 90))
	for _, price := range page.Items {
		fmt.Printf("%-36s %-25s %10.2f %-8s %-6d\n",
			price.ID, price.Name, price.Price, price.Currency, price.Months)
	}
	printPageFooter(page.Total, page.Page, len(page.Items))

	return nil
}

func printPageFooter(total, page, shown int) {
	fmt.Printf("\nShowing %d of %d (page %d)\n", shown, total, page)
}
