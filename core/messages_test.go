package core

import (
	"strings"
	"testing"
	"time"
)

func fixedFormatter() *MessageFormatter {
	formatter := NewMessageFormatter("America/Sao_Paulo")
	formatter.now = func() time.Time {
		return time.Date(2026, 3, 14, 15, 4, 5, 0, time.UTC)
	}
	return formatter
}

func TestMessageFormatter_OrderMessage(t *testing.T) {
	text := fixedFormatter().OrderMessage(testOrder("1001", "processing"))
	for _, fragment := range []string{
		"NOVO PEDIDO PAGO",
		"Cliente: Maria Souza",
		"Subtotal: R$ 130.00",
		"Frete: R$ 20.00",
		"Total: R$ 150.00",
		"Entrega: SEDEX",
		"Pagamento: Pix",
		"• Camiseta - Qtd: 2 - R$ 130.00",
		"Rua A, 10, São Paulo, SP, 01000-000, BR",
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected order message to contain %q, got %q", fragment, text)
		}
	}
}

func TestMessageFormatter_RetryMessageUsesLocalTime(t *testing.T) {
	formatter := fixedFormatter()
	if formatter.location.String() != "America/Sao_Paulo" {
		t.Skip("timezone database not available")
	}
	text := formatter.RetryMessage(testOrder("1001", "processing"), 3)
	if !strings.Contains(text, "Tentativa: 3") {
		t.Fatalf("expected attempt number, got %q", text)
	}
	if !strings.Contains(text, "14/03/2026, 12:04:05") {
		t.Fatalf("expected Sao Paulo timestamp, got %q", text)
	}
}

func TestMessageFormatter_AlertMessagePerDependency(t *testing.T) {
	formatter := fixedFormatter()
	cases := map[Dependency]string{
		DependencyCommerce:  "API da loja",
		DependencyLedger:    "banco de dados",
		DependencyMessaging: "WhatsApp",
		DependencyGeneric:   "disk almost full",
	}
	for dependency, fragment := range cases {
		text := formatter.AlertMessage(dependency, "disk almost full")
		if !strings.HasPrefix(text, "⚠️ ALERTA DO SISTEMA ⚠️") {
			t.Fatalf("expected alert header for %s, got %q", dependency, text)
		}
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in %s alert, got %q", fragment, dependency, text)
		}
	}
}

func TestMessageFormatter_StatusMessage(t *testing.T) {
	text := fixedFormatter().StatusMessage(StatusReport{
		PendingOrders: 4,
		Health: HealthSnapshot{
			Commerce:  DependencyHealth{Online: true},
			Messaging: DependencyHealth{Online: true},
		},
	})
	for _, fragment := range []string{"Loja: Online", "Banco de Dados: Offline", "Pedidos Pendentes: 4", "Última Verificação: nunca"} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in status message, got %q", fragment, text)
		}
	}
}

func TestNewMessageFormatter_UnknownZoneFallsBackToUTC(t *testing.T) {
	if got := NewMessageFormatter("Mars/Olympus").location; got != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", got)
	}
}
