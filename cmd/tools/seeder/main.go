package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-agency/internal/catalog"
	"github.com/noah-isme/backend-agency/internal/document"
	"github.com/noah-isme/backend-agency/internal/invoice"
	"github.com/noah-isme/backend-agency/internal/pricing"
	"github.com/noah-isme/backend-agency/internal/quote"
	"github.com/noah-isme/backend-agency/internal/store"
	"github.com/noah-isme/backend-agency/internal/subscription"
	"github.com/noah-isme/backend-agency/internal/ticket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	repo := store.New(pool)
	pricer := pricing.Pricer{Lookup: catalog.Default()}

	clients := seedClients(ctx, repo)
	seedQuotes(ctx, repo, pricer, clients)
	seedSubscriptions(ctx, repo, clients)
	seedTickets(ctx, repo, clients)

	log.Println("Seeding completed successfully!")
}

func seedClients(ctx context.Context, repo *store.Store) []store.Client {
	inputs := []store.Client{
		{Name: "Ada Okafor", Company: "Brightside Bakery", Email: "ada@brightsidebakery.test", Phone: "+15550100", Status: "active"},
		{Name: "Mikkel Sorensen", Company: "Fjord Outfitters", Email: "mikkel@fjordoutfitters.test", Phone: "+15550101", Status: "active"},
		{Name: "Priya Raman", Company: "Lumen Yoga", Email: "priya@lumenyoga.test", Status: "inactive"},
	}
	out := make([]store.Client, 0, len(inputs))
	for _, c := range inputs {
		created, err := repo.CreateClient(ctx, c)
		if err != nil {
			log.Fatalf("Failed to seed client %s: %v", c.Email, err)
		}
		out = append(out, created)
	}
	log.Printf("Seeded %d clients", len(out))
	return out
}

func seedQuotes(ctx context.Context, repo *store.Store, pricer pricing.Pricer, clients []store.Client) {
	svc := &quote.Service{
		Store:    repo,
		Invoices: repo,
		Pricer:   pricer,
		Machine:  document.QuoteMachine(),
	}
	custom := 250.0
	created, err := svc.Create(ctx, quote.CreateInput{
		ClientID: clients[0].ID,
		TaxRate:  8.5,
		Items: []quote.ItemInput{
			{ProductID: "website-template", Quantity: 1},
			{ProductID: "website-maintenance", Quantity: 1},
			{Description: "Custom photography session", Quantity: 1, CustomUnitPrice: &custom},
		},
	})
	if err != nil {
		log.Fatalf("Failed to seed quote: %v", err)
	}
	if _, err := svc.Send(ctx, created.ID); err != nil {
		log.Fatalf("Failed to send seeded quote: %v", err)
	}

	invSvc := &invoice.Service{
		Store:   repo,
		Pricer:  pricer,
		Machine: document.InvoiceMachine(),
	}
	if _, err := invSvc.Create(ctx, invoice.CreateInput{
		ClientID: clients[1].ID,
		TaxRate:  8.5,
		Items: []invoice.ItemInput{
			{ProductID: "website-template", Quantity: 1},
		},
	}); err != nil {
		log.Fatalf("Failed to seed invoice: %v", err)
	}
	log.Println("Seeded demo quote and invoice")
}

func seedSubscriptions(ctx context.Context, repo *store.Store, clients []store.Client) {
	svc := &subscription.Service{Store: repo}
	subs := []subscription.Input{
		{ClientID: clients[0].ID, Kind: "website", Plan: "standard", MonthlyPrice: 99},
		{ClientID: clients[1].ID, Kind: "chatbot", Plan: "starter", MonthlyPrice: 49},
	}
	for _, in := range subs {
		if _, err := svc.Create(ctx, in); err != nil {
			log.Fatalf("Failed to seed subscription: %v", err)
		}
	}
	log.Printf("Seeded %d subscriptions", len(subs))
}

func seedTickets(ctx context.Context, repo *store.Store, clients []store.Client) {
	svc := &ticket.Service{Store: repo}
	tickets := []ticket.Input{
		{ClientID: clients[0].ID, Subject: "Homepage hero image looks blurry", Priority: "normal"},
		{ClientID: clients[1].ID, Subject: "Chatbot not answering shipping questions", Priority: "high"},
	}
	for _, in := range tickets {
		if _, err := svc.Create(ctx, in); err != nil {
			log.Fatalf("Failed to seed ticket: %v", err)
		}
	}
	log.Printf("Seeded %d tickets", len(tickets))
}
