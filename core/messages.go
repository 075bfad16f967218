package core

import (
	"strconv"
	"strings"
	"time"
)

const messageTimeLayout = "02/01/2006, 15:04:05"

// MessageFormatter renders every text the reconciler sends through the
// messaging channel.
type MessageFormatter struct {
	location *time.Location
	now      func() time.Time
}

// NewMessageFormatter renders timestamps in the named IANA zone, falling back
// to UTC when the zone is unknown.
func NewMessageFormatter(timezone string) *MessageFormatter {
	location, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil || strings.TrimSpace(timezone) == "" {
		location = time.UTC
	}
	return &MessageFormatter{
		location: location,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (f *MessageFormatter) timestamp() string {
	return f.now().In(f.location).Format(messageTimeLayout)
}

func (f *MessageFormatter) OrderMessage(order Order) string {
	var b strings.Builder
	b.WriteString("🆕 NOVO PEDIDO PAGO!")
	b.WriteString(" | 👤 Cliente: " + order.Customer.Name)
	b.WriteString(" | 🧾 Subtotal: R$ " + order.Subtotal.StringFixed(2))
	b.WriteString(" | 🚚 Frete: R$ " + order.Shipping.StringFixed(2))
	b.WriteString(" | 💰 Total: R$ " + order.Total.StringFixed(2))
	b.WriteString(" | 🚚 Entrega: " + order.ShippingMethod)
	b.WriteString(" | 💳 Pagamento: " + order.PaymentMethod)
	b.WriteString(" | ✅ Pedido confirmado e pronto para processamento")
	b.WriteString("\n\n📦 Produtos:\n")
	b.WriteString(order.FormattedItems())
	b.WriteString("\n\n📍 Endereço de Entrega:\n")
	b.WriteString(order.FormattedAddress())
	return b.String()
}

func (f *MessageFormatter) RetryMessage(order Order, attempt int) string {
	return "🔄 TENTATIVA DE REENVIO\n\n" +
		"📦 Pedido: #" + order.Number + "\n" +
		"👤 Cliente: " + order.Customer.Name + "\n" +
		"🔄 Tentativa: " + strconv.Itoa(attempt) + "\n" +
		"⏰ Horário: " + f.timestamp() + "\n\n" +
		f.OrderMessage(order)
}

// AlertMessage renders an outage alert. Every Dependency value has a branch.
func (f *MessageFormatter) AlertMessage(dependency Dependency, detail string) string {
	const header = "⚠️ ALERTA DO SISTEMA ⚠️\n\n"
	var summary string
	switch dependency {
	case DependencyCommerce:
		summary = "A API da loja está indisponível, acione o responsável técnico!"
	case DependencyLedger:
		summary = "O banco de dados está offline, acione o responsável técnico!"
	case DependencyMessaging:
		summary = "A API do WhatsApp está com problemas, acione o responsável técnico!"
	case DependencyGeneric:
		return header + detail + "\n\n📅 Data/Hora: " + f.timestamp()
	default:
		return header + detail + "\n\n📅 Data/Hora: " + f.timestamp()
	}
	return header + summary + "\n\n📅 Data/Hora: " + f.timestamp() + "\n🔍 Detalhes: " + detail
}

func (f *MessageFormatter) StatusMessage(report StatusReport) string {
	lastCheck := "nunca"
	if report.LastCheck != nil {
		lastCheck = report.LastCheck.In(f.location).Format(messageTimeLayout)
	}
	return "📊 STATUS DO SISTEMA\n\n" +
		"✅ Loja: " + onlineLabel(report.Health.Commerce.Online) + "\n" +
		"✅ Banco de Dados: " + onlineLabel(report.Health.Ledger.Online) + "\n" +
		"✅ WhatsApp: " + onlineLabel(report.Health.Messaging.Online) + "\n" +
		"📦 Pedidos Pendentes: " + strconv.Itoa(report.PendingOrders) + "\n" +
		"🔄 Última Verificação: " + lastCheck + "\n\n" +
		"📅 Data/Hora: " + f.timestamp()
}

func (f *MessageFormatter) TestMessage() string {
	return "🧪 TESTE DO SISTEMA\n\n" +
		"✅ WhatsApp API está funcionando!\n" +
		"📅 Data/Hora: " + f.timestamp() + "\n" +
		"🚀 Sistema de mensagens automáticas ativo!"
}

func onlineLabel(online bool) string {
	if online {
		return "Online"
	}
	return "Offline"
}
