package terminal

import (
	"errors"
	"testing"
)

func connectedSim(t *testing.T) *Simulator {
	t.Helper()

	sim := NewSimulator()
	if _, err := sim.Connect(111, "secret", "Broker-Demo"); err != nil {
		t.Fatalf("Connect() error = %v, want nil", err)
	}
	return sim
}

func TestSimulator_Connect_EmptyPassword_AuthFailed(t *testing.T) {
	sim := NewSimulator()

	_, err := sim.Connect(111, "", "Broker-Demo")
	var termErr *Error
	if !errors.As(err, &termErr) {
		t.Fatalf("Connect() error = %v, want *Error", err)
	}
	if termErr.Code != CodeAuthFailed {
		t.Errorf("code = %d, want %d", termErr.Code, CodeAuthFailed)
	}
}

func TestSimulator_Connect_BadArguments_InvalidParams(t *testing.T) {
	sim := NewSimulator()

	for _, tc := range []struct {
		login  int64
		server string
	}{
		{0, "Broker-Demo"},
		{-5, "Broker-Demo"},
		{111, "   "},
	} {
		_, err := sim.Connect(tc.login, "secret", tc.server)
		var termErr *Error
		if !errors.As(err, &termErr) || termErr.Code != CodeInvalidParams {
			t.Errorf("Connect(%d, %q) error = %v, want code %d", tc.login, tc.server, err, CodeInvalidParams)
		}
	}
}

func TestSimulator_NotConnected_NoConnectionCode(t *testing.T) {
	sim := NewSimulator()

	_, err := sim.AccountInfo()
	var termErr *Error
	if !errors.As(err, &termErr) || termErr.Code != CodeNoConnection {
		t.Errorf("AccountInfo() error = %v, want code %d", err, CodeNoConnection)
	}

	if _, err := sim.Positions(0); err == nil {
		t.Error("Positions() should fail before Connect()")
	}
}

func TestSimulator_Positions_MagicFilter(t *testing.T) {
	sim := connectedSim(t)

	all, err := sim.Positions(0)
	if err != nil {
		t.Fatalf("Positions(0) error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	filtered, err := sim.Positions(42)
	if err != nil {
		t.Fatalf("Positions(42) error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].Magic != 42 {
		t.Errorf("filtered = %+v, want single position with magic 42", filtered)
	}
}

func TestSimulator_PlaceOrder_AppendsPosition(t *testing.T) {
	sim := connectedSim(t)

	result, err := sim.PlaceOrder(OrderRequest{Symbol: "GBPUSD", Type: "buy", Volume: 0.2})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if result.Retcode != 10009 {
		t.Errorf("retcode = %d, want 10009", result.Retcode)
	}

	positions, _ := sim.Positions(0)
	if len(positions) != 3 {
		t.Errorf("positions = %d, want 3 after order", len(positions))
	}
}

func TestSimulator_PlaceOrder_InvalidRequest_Rejected(t *testing.T) {
	sim := connectedSim(t)

	for _, req := range []OrderRequest{
		{Symbol: "", Type: "buy", Volume: 0.1},
		{Symbol: "EURUSD", Type: "hold", Volume: 0.1},
		{Symbol: "EURUSD", Type: "sell", Volume: 0},
	} {
		_, err := sim.PlaceOrder(req)
		var termErr *Error
		if !errors.As(err, &termErr) || termErr.Code != CodeInvalidParams {
			t.Errorf("PlaceOrder(%+v) error = %v, want code %d", req, err, CodeInvalidParams)
		}
	}
}

func TestSimulator_ClosePosition_RemovesTicket(t *testing.T) {
	sim := connectedSim(t)

	positions, _ := sim.Positions(0)
	ticket := positions[0].Ticket

	result, err := sim.ClosePosition(ticket)
	if err != nil {
		t.Fatalf("ClosePosition() error = %v", err)
	}
	if result.Ticket != ticket {
		t.Errorf("result ticket = %d, want %d", result.Ticket, ticket)
	}

	remaining, _ := sim.Positions(0)
	if len(remaining) != 1 {
		t.Errorf("positions = %d, want 1 after close", len(remaining))
	}

	if _, err := sim.ClosePosition(ticket); err == nil {
		t.Error("closing the same ticket twice should fail")
	}
}

func TestSimulator_Bars_CountAndOrdering(t *testing.T) {
	sim := connectedSim(t)

	bars, err := sim.Bars("EURUSD", "M1", 10)
	if err != nil {
		t.Fatalf("Bars() error = %v", err)
	}
	if len(bars) != 10 {
		t.Fatalf("len = %d, want 10", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Time <= bars[i-1].Time {
			t.Fatalf("bars not in ascending time order at index %d", i)
		}
	}
}

func TestSimulator_Shutdown_DropsConnection(t *testing.T) {
	sim := connectedSim(t)

	sim.Shutdown()

	_, err := sim.AccountInfo()
	var termErr *Error
	if !errors.As(err, &termErr) || termErr.Code != CodeNoConnection {
		t.Errorf("AccountInfo() after Shutdown() error = %v, want code %d", err, CodeNoConnection)
	}
}
