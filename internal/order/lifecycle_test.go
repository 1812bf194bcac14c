package order

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/fjod/storefront/internal/domain"
)

type lifecycleContext struct {
	t     *testing.T
	h     *harness
	order *domain.Order
	err   error
}

func (c *lifecycleContext) aPlacedOrderForRedMediumTShirts(quantity int) error {
	ctx := context.Background()
	cart := c.h.fillCart(c.t, "sess-bdd", "user-bdd", "")
	for key, line := range cart.Lines {
		line.Quantity = quantity
		cart.Lines[key] = line
	}
	order, err := c.h.svc.PlaceOrder(ctx, PlaceRequest{Cart: cart, UserID: "user-bdd", Checkout: validCheckout()})
	if err != nil {
		return err
	}
	c.order = order
	return nil
}

func (c *lifecycleContext) theOrderIsMovedTo(status string) error {
	next, ok := domain.ParseOrderStatus(status)
	if !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	_, c.err = c.h.svc.Transition(context.Background(), c.order.OrderNumber, next, "")
	return nil
}

func (c *lifecycleContext) theCustomerCancelsTheOrder() error {
	_, c.err = c.h.svc.Cancel(context.Background(), c.order.OrderNumber, Requester{UserID: "user-bdd"}, "")
	return nil
}

func (c *lifecycleContext) theOrderStatusIs(status string) error {
	order, err := c.h.svc.Get(context.Background(), c.order.OrderNumber)
	if err != nil {
		return err
	}
	if string(order.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, order.Status)
	}
	return nil
}

func (c *lifecycleContext) theGrandTotalIs(total string) error {
	if got := c.order.GrandTotal.StringFixed(2); got != total {
		return fmt.Errorf("expected grand total %s, got %s", total, got)
	}
	return nil
}

func (c *lifecycleContext) variationHasInStock(variationID int64, stock int) error {
	v, err := c.h.repo.GetVariation(context.Background(), 1, variationID)
	if err != nil {
		return err
	}
	if v.Stock != stock {
		return fmt.Errorf("expected stock %d, got %d", stock, v.Stock)
	}
	return nil
}

func (c *lifecycleContext) theOrderHasTrackingRecords(n int) error {
	history, err := c.h.svc.History(context.Background(), c.order.OrderNumber)
	if err != nil {
		return err
	}
	if len(history) != n {
		return fmt.Errorf("expected %d tracking records, got %d", n, len(history))
	}
	return nil
}

func (c *lifecycleContext) theRequestFailsWithCode(code string) error {
	if c.err == nil {
		return errors.New("expected the request to fail but it succeeded")
	}
	var rule *domain.RuleError
	if !errors.As(c.err, &rule) {
		return fmt.Errorf("expected a rule error, got %T: %v", c.err, c.err)
	}
	if rule.Code != code {
		return fmt.Errorf("expected code %s, got %s", code, rule.Code)
	}
	return nil
}

func TestOrderLifecycleFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			lc := &lifecycleContext{t: t}

			sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				lc.h = newHarness(t)
				lc.order = nil
				lc.err = nil
				return ctx, nil
			})

			sc.Step(`^a placed order for (\d+) red medium T-shirts$`, lc.aPlacedOrderForRedMediumTShirts)
			sc.Step(`^the order is moved to "([^"]*)"$`, lc.theOrderIsMovedTo)
			sc.Step(`^the customer cancels the order$`, lc.theCustomerCancelsTheOrder)
			sc.Step(`^the order status is "([^"]*)"$`, lc.theOrderStatusIs)
			sc.Step(`^the grand total is "([^"]*)"$`, lc.theGrandTotalIs)
			sc.Step(`^variation (\d+) has (\d+) in stock$`, lc.variationHasInStock)
			sc.Step(`^the order has (\d+) tracking records$`, lc.theOrderHasTrackingRecords)
			sc.Step(`^the request fails with code "([^"]*)"$`, lc.theRequestFailsWithCode)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/order_lifecycle.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
