// Package paddle connects the billing core to Paddle Billing.
//
// A single Client implements billing.Provider (subscription lookups for the
// reconciler), billing.CheckoutProvider (hosted checkout through
// transactions), and billing.WebhookVerifier and billing.WebhookParser for
// the webhook endpoint:
//
//	client, err := paddle.NewClient(cfg)
//	if err != nil {
//	    return err
//	}
//	svc := billing.NewService(repo, catalog, client,
//	    billing.WithWebhooks(client, client),
//	    billing.WithCheckout(client),
//	)
//
// Checkouts carry user_id and product_id in custom_data; Paddle copies
// custom data onto the subscription it creates, which lets activation
// webhooks find the local subscription before the provider id is linked.
package paddle
