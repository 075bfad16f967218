package ordernotify

import (
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-order-notify/core"
	"github.com/goliatone/go-order-notify/providers/whatsapp"
	"github.com/goliatone/go-order-notify/providers/woocommerce"
	"github.com/goliatone/go-order-notify/transport"
)

// WooCommerceSource builds the commerce source from the commerce section of
// cfg. A nil doer gets a default http.Client.
func WooCommerceSource(cfg Config, doer transport.HTTPDoer, logger glog.Logger) core.CommerceSource {
	return woocommerce.New(cfg.Commerce, doer, woocommerce.WithLogger(logger))
}

// WhatsAppMessenger builds the messenger from the messaging section of cfg.
func WhatsAppMessenger(cfg Config, doer transport.HTTPDoer) core.Messenger {
	return whatsapp.New(cfg.Messaging, doer)
}
