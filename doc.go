// Package courier provides a throttled email notification delivery core.
//
// It resolves a notification to a set of recipient addresses (a single
// targeted user or a broadcast audience), renders a subject and body, and
// fans the message out over a pluggable transport with a bounded send
// rate. Recipient lookups go through a pluggable cache and a pluggable
// user directory.
//
// # Basic Usage
//
//	p, err := courier.NewProcessor(courier.Config{
//	    Sender:   "noreply@example.com",
//	    Receiver: courier.ReceiverUsers,
//	    Transport: transport.Config{
//	        Kind: transport.KindSMTP,
//	        SMTP: transport.SMTPConfig{Host: "smtp.example.com", Port: 587},
//	    },
//	},
//	    courier.WithDirectory(dir),
//	    courier.WithCache(memory.New()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = p.Process(ctx, courier.Notification{
//	    ID:     "n-1",
//	    UserID: "user123",
//	    Payload: courier.Payload{Title: "Build finished"},
//	}, courier.Targeted())
//
// # Recipient Resolution
//
// A notification addressed to a user resolves to that user's profile email
// via the directory. A broadcast resolves according to the configured
// receiver mode: nobody, a static address list from configuration, or
// every directory user with an email.
//
// A caveat worth knowing: a notification whose UserID is empty is treated
// as a broadcast even when the send options say targeted. An upstream bug
// that drops the user ID therefore widens delivery to the whole audience
// rather than narrowing it to nobody. Validate UserID before calling
// Process if that matters to you.
//
// # Delivery Semantics
//
// Delivery is best-effort per recipient. A failure for one address is
// logged and never blocks or aborts the others, and Process does not
// report it. Process returns an error only for configuration problems:
// an unusable transport or an unknown receiver mode.
//
// # Transports
//
// The transport package provides SMTP, AWS SES, and local sendmail
// delivery, selected by transport.Config.Kind.
//
// # Caches and Directories
//
// The cache package defines the recipient cache contract with Redis
// (cache/redis) and in-memory (cache/memory) implementations. The
// directory package defines the user directory contract with MongoDB
// (directory/mongo), PostgreSQL (directory/postgres), and static in-memory
// implementations.
//
// # Events
//
// Courier publishes typed lifecycle events (dispatched, skipped, failed)
// using the github.com/rbaliyan/event/v3 library. Events are inert until
// Connect is called; pass WithRedisClient or WithEventTransport to publish
// beyond the local process.
package courier
