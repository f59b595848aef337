package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fastship-next/internal/cache"
	"github.com/fastship-next/internal/config"
	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/metrics"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	emails []EmailMessage
	sms    []SMSMessage
	err    error
}

func (d *recordingDispatcher) DispatchEmail(_ context.Context, msg EmailMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.emails = append(d.emails, msg)
	return nil
}

func (d *recordingDispatcher) DispatchSMS(_ context.Context, msg SMSMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sms = append(d.sms, msg)
	return nil
}

func (d *recordingDispatcher) lastEmail(t *testing.T) EmailMessage {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.emails) == 0 {
		t.Fatalf("expected at least one email")
	}
	return d.emails[len(d.emails)-1]
}

type shipmentFixture struct {
	db         *gorm.DB
	mr         *miniredis.Miniredis
	store      *cache.Store
	svc        *ShipmentService
	partners   *PartnerService
	tokens     *TokenService
	dispatcher *recordingDispatcher
	registry   *prometheus.Registry
	seller     *models.Seller
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := models.OpenDB("sqlite", dsn, models.DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}, false)
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupShipmentTest(t *testing.T) *shipmentFixture {
	t.Helper()
	db := openServiceTestDB(t)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis failed: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewStore(client, "fs")

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		t.Fatalf("metrics init failed: %v", err)
	}

	partnerRepo := repository.NewPartnerRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	sellerRepo := repository.NewSellerRepository(db)
	tokens := NewTokenService("review-secret", "fastship.test")
	dispatcher := &recordingDispatcher{}

	svc := NewShipmentService(ShipmentServiceDeps{
		DB: db,
		Config: config.ShipmentConfig{
			MaxWeightKG:             25,
			EstimatedDeliveryHours:  72,
			VerificationCodeTTLHour: 24,
			ReviewTokenDays:         30,
		},
		ShipmentRepo: repository.NewShipmentRepository(db),
		SellerRepo:   sellerRepo,
		TagRepo:      repository.NewTagRepository(db),
		ReviewRepo:   repository.NewReviewRepository(db),
		Assigner:     NewAssignmentEngine(partnerRepo),
		Events:       NewEventService(repository.NewShipmentEventRepository(db), locationRepo),
		Codes:        cache.NewRedisVerificationCodeStore(store),
		Tokens:       tokens,
		Dispatcher:   dispatcher,
		Cache:        store,
		Metrics:      m,
	})

	seller := &models.Seller{Account: models.Account{Name: "Acme Store", Email: "seller@acme.test", PasswordHash: "x"}}
	if err := sellerRepo.Create(seller); err != nil {
		t.Fatalf("create seller failed: %v", err)
	}

	return &shipmentFixture{
		db:         db,
		mr:         mr,
		store:      store,
		svc:        svc,
		partners:   NewPartnerService(db, partnerRepo, locationRepo),
		tokens:     tokens,
		dispatcher: dispatcher,
		registry:   registry,
		seller:     seller,
	}
}

func (f *shipmentFixture) addPartner(t *testing.T, id, name string, capacity int, zips ...uint) *models.DeliveryPartner {
	t.Helper()
	partner := &models.DeliveryPartner{
		ID:                  id,
		Account:             models.Account{Name: name, Email: id + "@partners.test", PasswordHash: "x"},
		MaxHandlingCapacity: capacity,
	}
	if err := repository.NewPartnerRepository(f.db).Create(partner); err != nil {
		t.Fatalf("create partner failed: %v", err)
	}
	if err := f.partners.SetServiceableLocations(id, zips); err != nil {
		t.Fatalf("set serviceable locations failed: %v", err)
	}
	return partner
}

func (f *shipmentFixture) addSeller(t *testing.T, name, email string) *models.Seller {
	t.Helper()
	seller := &models.Seller{Account: models.Account{Name: name, Email: email, PasswordHash: "x"}}
	if err := repository.NewSellerRepository(f.db).Create(seller); err != nil {
		t.Fatalf("create seller failed: %v", err)
	}
	return seller
}

func shipmentInput(destination uint, weight string) CreateShipmentInput {
	w, err := models.ParseWeight(weight)
	if err != nil {
		panic(err)
	}
	return CreateShipmentInput{
		Content:            "books",
		Weight:             w,
		Destination:        destination,
		ClientContactEmail: "client@example.com",
		ClientContactPhone: "612345678",
	}
}

func strPtr(v string) *string { return &v }
func uintPtr(v uint) *uint    { return &v }

func (f *shipmentFixture) countShipments(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.Shipment{}).Count(&count).Error; err != nil {
		t.Fatalf("count shipments failed: %v", err)
	}
	return count
}

func (f *shipmentFixture) storedCode(t *testing.T, shipmentID string) string {
	t.Helper()
	code, err := f.mr.Get("fs:verification_code:" + shipmentID)
	if err != nil {
		t.Fatalf("verification code not stored: %v", err)
	}
	return code
}

func TestCreateShipmentWeightBoundary(t *testing.T) {
	f := setupShipmentTest(t)
	f.addPartner(t, "partner-a", "Rapid Riders", 10, 11004)

	if _, err := f.svc.Create(context.Background(), f.seller.ID, shipmentInput(11004, "25.0")); err != nil {
		t.Fatalf("25.0kg should be accepted: %v", err)
	}
	for _, weight := range []string{"25.01", "0", "-1", "0.0004"} {
		_, err := f.svc.Create(context.Background(), f.seller.ID, shipmentInput(11004, weight))
		if !errors.Is(err, ErrInvalidWeight) || KindOf(err) != KindValidation {
			t.Fatalf("weight %s: expected ErrInvalidWeight, got %v", weight, err)
		}
	}
	if got := f.countShipments(t); got != 1 {
		t.Fatalf("expected 1 shipment, got %d", got)
	}
}

func TestCreateShipmentValidation(t *testing.T) {
	f := setupShipmentTest(t)
	f.addPartner(t, "partner-a", "Rapid Riders", 10, 11004)

	missingDestination := shipmentInput(0, "1")
	if _, err := f.svc.Create(context.Background(), f.seller.ID, missingDestination); !errors.Is(err, ErrDestinationRequired) {
		t.Fatalf("expected ErrDestinationRequired, got %v", err)
	}
	missingEmail := shipmentInput(11004, "1")
	missingEmail.ClientContactEmail = " "
	if _, err := f.svc.Create(context.Background(), f.seller.ID, missingEmail); !errors.Is(err, ErrClientEmailRequired) {
		t.Fatalf("expected ErrClientEmailRequired, got %v", err)
	}
	if _, err := f.svc.Create(context.Background(), "missing-seller", shipmentInput(11004, "1")); !errors.Is(err, ErrSellerNotFound) {
		t.Fatalf("expected ErrSellerNotFound, got %v", err)
	}
}

func TestCreateShipmentWithoutEligiblePartner(t *testing.T) {
	f := setupShipmentTest(t)
	f.addPartner(t, "partner-a", "Rapid Riders", 10, 20001)

	_, err := f.svc.Create(context.Background(), f.seller.ID, shipmentInput(11004, "2"))
	if !errors.Is(err, ErrPartnerUnavailable) || KindOf(err) != KindPartnerUnavailable {
		t.Fatalf("expected ErrPartnerUnavailable, got %v", err)
	}
	if got := f.countShipments(t); got != 0 {
		t.Fatalf("no shipment should be persisted, got %d", got)
	}
	var events int64
	f.db.Model(&models.ShipmentEvent{}).Count(&events)
	if events != 0 {
		t.Fatalf("no event should be persisted, got %d", events)
	}
}

func TestCreateShipmentSkipsFullPartnerInIDOrder(t *testing.T) {
	f := setupShipmentTest(t)
	f.addPartner(t, "partner-b", "Second", 1, 11004)
	f.addPartner(t, "partner-a", "First", 1, 11004)
	f.addPartner(t, "partner-c", "Elsewhere", 5, 30000)

	first, err := f.svc.Create(context.Background(), f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if first.DeliveryPartnerID != "partner-a" {
		t.Fatalf("expected lowest id partner-a, got %s", first.DeliveryPartnerID)
	}
	second, err := f.svc.Create(context.Background(), f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if second.DeliveryPartnerID != "partner-b" {
		t.Fatalf("expected partner-b once partner-a is full, got %s", second.DeliveryPartnerID)
	}
	if _, err := f.svc.Create(context.Background(), f.seller.ID, shipmentInput(11004, "1")); !errors.Is(err, ErrPartnerUnavailable) {
		t.Fatalf("expected ErrPartnerUnavailable when all partners are full, got %v", err)
	}
}

func TestConcurrentCreateRespectsCapacity(t *testing.T) {
	f := setupShipmentTest(t)
	f.addPartner(t, "partner-a", "Solo", 1, 11004)

	const workers = 8
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		successes   int
		unavailable int
		others      []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Create(context.Background(), f.seller.ID, shipmentInput(11004, "1"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrPartnerUnavailable):
				unavailable++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if successes != 1 || unavailable != workers-1 {
		t.Fatalf("expected 1 success and %d unavailable, got %d and %d", workers-1, successes, unavailable)
	}
	if got := f.countShipments(t); got != 1 {
		t.Fatalf("expected exactly 1 persisted shipment, got %d", got)
	}
}

func TestShipmentLifecycleScenario(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 2, 11001, 11002, 11003, 11004, 11005)
	ctx := context.Background()

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "3.5"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if shipment.Status != constants.ShipmentStatusPlaced || shipment.DeliveryPartnerID != partner.ID {
		t.Fatalf("unexpected shipment: status=%s partner=%s", shipment.Status, shipment.DeliveryPartnerID)
	}
	if len(shipment.Timeline) != 1 {
		t.Fatalf("expected 1 event, got %d", len(shipment.Timeline))
	}
	initial := shipment.Timeline[0]
	if initial.Location != 11004 || initial.Description != "assigned to Rapid Riders" || initial.Status != constants.ShipmentStatusPlaced {
		t.Fatalf("unexpected initial event: %+v", initial)
	}
	capacity, err := f.partners.CurrentCapacity(partner.ID)
	if err != nil || capacity != 1 {
		t.Fatalf("expected capacity 1, got %d (%v)", capacity, err)
	}
	if email := f.dispatcher.lastEmail(t); email.Subject != subjectShipped || email.Context["partner"] != "Rapid Riders" || email.Context["seller"] != "Acme Store" {
		t.Fatalf("unexpected placed email: %+v", email)
	}

	updated, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusOutForDelivery)})
	if err != nil {
		t.Fatalf("out_for_delivery update failed: %v", err)
	}
	if len(updated.Timeline) != 2 || updated.Timeline[0].Status != constants.ShipmentStatusOutForDelivery {
		t.Fatalf("expected second event for out_for_delivery, got %+v", updated.Timeline)
	}
	if updated.Timeline[0].Location != 11004 || updated.Timeline[0].Description != "shipment out for delivery" {
		t.Fatalf("unexpected out_for_delivery event: %+v", updated.Timeline[0])
	}
	code := f.storedCode(t, shipment.ID)
	if len(code) != 6 || code < "100000" || code > "999999" {
		t.Fatalf("expected 6-digit code, got %q", code)
	}
	if ttl := f.mr.TTL("fs:verification_code:" + shipment.ID); ttl != 24*time.Hour {
		t.Fatalf("expected 24h ttl, got %s", ttl)
	}
	arriving := f.dispatcher.lastEmail(t)
	if arriving.Subject != subjectArriving || !strings.Contains(arriving.Body, code) {
		t.Fatalf("arriving email must carry the code: %+v", arriving)
	}
	f.dispatcher.mu.Lock()
	smsCount := len(f.dispatcher.sms)
	lastSMS := f.dispatcher.sms[smsCount-1]
	f.dispatcher.mu.Unlock()
	if !strings.Contains(lastSMS.Body, code) || lastSMS.Phone != "612345678" {
		t.Fatalf("unexpected sms: %+v", lastSMS)
	}

	delivered, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{
		Status:           strPtr(constants.ShipmentStatusDelivered),
		VerificationCode: strPtr(code),
	})
	if err != nil {
		t.Fatalf("delivered update failed: %v", err)
	}
	if delivered.Status != constants.ShipmentStatusDelivered || len(delivered.Timeline) != 3 {
		t.Fatalf("expected delivered with 3 events, got %s / %d", delivered.Status, len(delivered.Timeline))
	}
	deliveredEmail := f.dispatcher.lastEmail(t)
	if deliveredEmail.Subject != subjectDelivered {
		t.Fatalf("unexpected delivered email: %+v", deliveredEmail)
	}
	reviewURL, err := url.Parse(deliveredEmail.Context["review_url"])
	if err != nil || reviewURL.Host != "fastship.test" || reviewURL.Path != "/shipment/review" {
		t.Fatalf("unexpected review url: %q", deliveredEmail.Context["review_url"])
	}
	reviewed, err := f.tokens.ParseReviewToken(reviewURL.Query().Get("token"))
	if err != nil || reviewed != shipment.ID {
		t.Fatalf("review token should resolve to shipment, got %q (%v)", reviewed, err)
	}
	capacity, _ = f.partners.CurrentCapacity(partner.ID)
	if capacity != 2 {
		t.Fatalf("delivered shipment must release capacity, got %d", capacity)
	}

	_, err = f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Location: uintPtr(11001)})
	if !errors.Is(err, ErrShipmentTerminal) || KindOf(err) != KindValidation {
		t.Fatalf("expected terminal ValidationError, got %v", err)
	}
	if _, err := f.svc.Cancel(ctx, shipment.ID, f.seller.ID); !errors.Is(err, ErrShipmentTerminal) {
		t.Fatalf("expected terminal error on cancel, got %v", err)
	}
}

func TestDeliveredRequiresPriorOutForDelivery(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	ctx := context.Background()

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_, err = f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{
		Status:           strPtr(constants.ShipmentStatusDelivered),
		VerificationCode: strPtr("123456"),
	})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected ValidationError from placed, got %v", err)
	}

	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusInTransit)}); err != nil {
		t.Fatalf("in_transit update failed: %v", err)
	}
	_, err = f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{
		Status:           strPtr(constants.ShipmentStatusDelivered),
		VerificationCode: strPtr("123456"),
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from in_transit, got %v", err)
	}
	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusCancelled)}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("partner must not cancel, got %v", err)
	}
	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr("lost")}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestDeliveredVerificationCodeChecks(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	ctx := context.Background()

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusOutForDelivery)}); err != nil {
		t.Fatalf("out_for_delivery failed: %v", err)
	}
	code := f.storedCode(t, shipment.ID)
	wrong := "100000"
	if code == wrong {
		wrong = "100001"
	}

	deliver := func(code *string) error {
		_, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{
			Status:           strPtr(constants.ShipmentStatusDelivered),
			VerificationCode: code,
		})
		return err
	}
	if err := deliver(nil); !errors.Is(err, ErrVerificationCodeRequired) || KindOf(err) != KindValidation {
		t.Fatalf("expected ErrVerificationCodeRequired, got %v", err)
	}
	if err := deliver(strPtr(wrong)); !errors.Is(err, ErrInvalidVerificationCode) || KindOf(err) != KindInvalidToken {
		t.Fatalf("expected ErrInvalidVerificationCode, got %v", err)
	}

	f.mr.FastForward(25 * time.Hour)
	if err := deliver(strPtr(code)); !errors.Is(err, ErrInvalidVerificationCode) {
		t.Fatalf("expired code must be rejected, got %v", err)
	}

	current, err := f.svc.Get(shipment.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if current.Status != constants.ShipmentStatusOutForDelivery || len(current.Timeline) != 2 {
		t.Fatalf("rejected deliveries must not change state: %s / %d events", current.Status, len(current.Timeline))
	}

	// 重新出发配送会生成新验证码，旧验证码失效
	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusInTransit)}); err != nil {
		t.Fatalf("back to in_transit failed: %v", err)
	}
	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusOutForDelivery)}); err != nil {
		t.Fatalf("second out_for_delivery failed: %v", err)
	}
	fresh := f.storedCode(t, shipment.ID)
	if err := deliver(strPtr(fresh)); err != nil {
		t.Fatalf("fresh code should deliver: %v", err)
	}
}

func TestUpdateByOtherPartnerIsNotAuthorized(t *testing.T) {
	f := setupShipmentTest(t)
	f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	f.addPartner(t, "partner-z", "Other", 5, 11004)
	ctx := context.Background()

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_, err = f.svc.Update(ctx, shipment.ID, "partner-z", UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusInTransit)})
	if !errors.Is(err, ErrNotAssignedPartner) || KindOf(err) != KindNotAuthorized {
		t.Fatalf("expected ErrNotAssignedPartner, got %v", err)
	}
	if _, err := f.svc.Update(ctx, "missing", "partner-a", UpdateShipmentInput{}); !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("expected ErrShipmentNotFound, got %v", err)
	}
}

func TestUpdateEventRulesAndLocationInheritance(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	ctx := context.Background()

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	eta := time.Date(2030, 5, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	noEvent, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{
		Description:       strPtr("ignored without status or location"),
		EstimatedDelivery: &eta,
	})
	if err != nil {
		t.Fatalf("eta update failed: %v", err)
	}
	if len(noEvent.Timeline) != 1 {
		t.Fatalf("description-only update must not append an event, got %d", len(noEvent.Timeline))
	}
	if !noEvent.EstimatedDelivery.Equal(eta) {
		t.Fatalf("expected eta %s, got %s", eta, noEvent.EstimatedDelivery)
	}

	scanned, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{
		Status:   strPtr(constants.ShipmentStatusInTransit),
		Location: uintPtr(11002),
	})
	if err != nil {
		t.Fatalf("in_transit update failed: %v", err)
	}
	if got := scanned.Timeline[0]; got.Location != 11002 || got.Description != "scanned at 11002" {
		t.Fatalf("unexpected scan event: %+v", got)
	}

	relocated, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{
		Location:    uintPtr(11003),
		Description: strPtr("arrived at hub"),
	})
	if err != nil {
		t.Fatalf("location update failed: %v", err)
	}
	if len(relocated.Timeline) != 3 || relocated.Timeline[0].Description != "arrived at hub" || relocated.Timeline[0].Location != 11003 {
		t.Fatalf("location-only update must append an event: %+v", relocated.Timeline)
	}

	out, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusOutForDelivery)})
	if err != nil {
		t.Fatalf("out_for_delivery failed: %v", err)
	}
	if out.Timeline[0].Location != 11003 {
		t.Fatalf("location must be inherited from the most recent event, got %d", out.Timeline[0].Location)
	}
}

func TestUpdateRejectsZeroLocation(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	ctx := context.Background()

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_, err = f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{
		Status:   strPtr(constants.ShipmentStatusInTransit),
		Location: uintPtr(0),
	})
	if !errors.Is(err, ErrInvalidZipCode) || KindOf(err) != KindValidation {
		t.Fatalf("expected ErrInvalidZipCode, got %v", err)
	}

	detail, err := f.svc.Get(shipment.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.Status != constants.ShipmentStatusPlaced || len(detail.Timeline) != 1 {
		t.Fatalf("rejected update must not change the shipment: status=%s events=%d", detail.Status, len(detail.Timeline))
	}
	var zeroRows int64
	if err := f.db.Model(&models.Location{}).Where("zip_code = ?", 0).Count(&zeroRows).Error; err != nil {
		t.Fatalf("count locations failed: %v", err)
	}
	if zeroRows != 0 {
		t.Fatalf("zip 0 location must not be created")
	}
}

// statusAtPutStore 记录写入验证码时数据库中已提交的运单状态
type statusAtPutStore struct {
	VerificationCodeStore
	db       *gorm.DB
	statuses []string
	putErr   error
}

func (s *statusAtPutStore) Put(ctx context.Context, shipmentID, code string, ttl time.Duration) error {
	var shipment models.Shipment
	if err := s.db.Select("status").Where("id = ?", shipmentID).First(&shipment).Error; err != nil {
		return err
	}
	s.statuses = append(s.statuses, shipment.Status)
	if s.putErr != nil {
		return s.putErr
	}
	return s.VerificationCodeStore.Put(ctx, shipmentID, code, ttl)
}

func TestVerificationCodeStoredAfterCommit(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	ctx := context.Background()
	codes := &statusAtPutStore{VerificationCodeStore: f.svc.codes, db: f.db}
	f.svc.codes = codes

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusOutForDelivery)}); err != nil {
		t.Fatalf("out_for_delivery failed: %v", err)
	}
	if len(codes.statuses) != 1 || codes.statuses[0] != constants.ShipmentStatusOutForDelivery {
		t.Fatalf("code must be stored after the transition is committed, saw %v", codes.statuses)
	}
	if code := f.storedCode(t, shipment.ID); len(code) != 6 {
		t.Fatalf("unexpected stored code %q", code)
	}
}

func TestVerificationCodeStoreFailureKeepsTransition(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	ctx := context.Background()
	f.svc.codes = &statusAtPutStore{VerificationCodeStore: f.svc.codes, db: f.db, putErr: errors.New("redis down")}

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	updated, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusOutForDelivery)})
	if err != nil {
		t.Fatalf("store failure must not fail the committed transition: %v", err)
	}
	if updated.Status != constants.ShipmentStatusOutForDelivery {
		t.Fatalf("unexpected status %s", updated.Status)
	}
}

func TestTimelineIsNewestFirstAndStable(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	ctx := context.Background()

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for _, zip := range []uint{11001, 11002, 11003} {
		if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{
			Status:   strPtr(constants.ShipmentStatusInTransit),
			Location: uintPtr(zip),
		}); err != nil {
			t.Fatalf("update failed: %v", err)
		}
	}

	first, err := f.svc.Timeline(shipment.ID)
	if err != nil {
		t.Fatalf("timeline failed: %v", err)
	}
	if len(first) != 4 {
		t.Fatalf("expected 4 events, got %d", len(first))
	}
	for i := 1; i < len(first); i++ {
		if !first[i-1].CreatedAt.After(first[i].CreatedAt) {
			t.Fatalf("timeline not strictly newest-first at %d: %s then %s", i, first[i-1].CreatedAt, first[i].CreatedAt)
		}
	}
	if first[0].Location != 11003 || first[len(first)-1].Status != constants.ShipmentStatusPlaced {
		t.Fatalf("unexpected ordering: %+v", first)
	}
	second, err := f.svc.Timeline(shipment.ID)
	if err != nil {
		t.Fatalf("timeline failed: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("timeline must be stable across calls")
		}
	}
	if _, err := f.svc.Timeline("missing"); !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("expected ErrShipmentNotFound, got %v", err)
	}
}

func TestCancelShipment(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	stranger := f.addSeller(t, "Stranger", "stranger@shop.test")
	ctx := context.Background()

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = f.svc.Cancel(ctx, shipment.ID, stranger.ID)
	if !errors.Is(err, ErrNotShipmentOwner) || KindOf(err) != KindNotAuthorized {
		t.Fatalf("expected ErrNotShipmentOwner, got %v", err)
	}
	unchanged, _ := f.svc.Get(shipment.ID)
	if unchanged.Status != constants.ShipmentStatusPlaced || len(unchanged.Timeline) != 1 {
		t.Fatalf("unauthorized cancel must not mutate: %s / %d", unchanged.Status, len(unchanged.Timeline))
	}

	cancelled, err := f.svc.Cancel(ctx, shipment.ID, f.seller.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.ShipmentStatusCancelled || len(cancelled.Timeline) != 2 {
		t.Fatalf("unexpected cancelled shipment: %s / %d", cancelled.Status, len(cancelled.Timeline))
	}
	if got := cancelled.Timeline[0]; got.Description != "cancelled by seller" || got.Location != 11004 {
		t.Fatalf("unexpected cancel event: %+v", got)
	}
	if email := f.dispatcher.lastEmail(t); email.Subject != subjectCancelled {
		t.Fatalf("expected cancellation email, got %+v", email)
	}

	if _, err := f.svc.Cancel(ctx, shipment.ID, f.seller.ID); !errors.Is(err, ErrShipmentTerminal) {
		t.Fatalf("re-cancel must be rejected, got %v", err)
	}
	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusInTransit)}); !errors.Is(err, ErrShipmentTerminal) {
		t.Fatalf("update after cancel must be rejected, got %v", err)
	}

	// 已取消运单仍计入活跃运单
	profile, err := f.partners.Profile(partner.ID)
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if profile.ActiveShipments != 1 || profile.CurrentCapacity != 4 {
		t.Fatalf("cancelled shipment should still count against capacity: %+v", profile)
	}
}

func TestTagRoundTrip(t *testing.T) {
	f := setupShipmentTest(t)
	f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)

	shipment, err := f.svc.Create(context.Background(), f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	tags, err := f.svc.AddTag(shipment.ID, "Fragile")
	if err != nil {
		t.Fatalf("add tag failed: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != constants.TagFragile || tags[0].Instruction != "Handle with care: fragile" {
		t.Fatalf("unexpected tags: %+v", tags)
	}
	if _, err := f.svc.AddTag(shipment.ID, constants.TagFragile); !errors.Is(err, ErrTagAlreadyAdded) || KindOf(err) != KindAlreadyExists {
		t.Fatalf("expected ErrTagAlreadyAdded, got %v", err)
	}
	tags, err = f.svc.RemoveTag(shipment.ID, constants.TagFragile)
	if err != nil {
		t.Fatalf("remove tag failed: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected empty tag set, got %+v", tags)
	}
	reloaded, _ := f.svc.Get(shipment.ID)
	if len(reloaded.Tags) != 0 {
		t.Fatalf("expected no persisted tags, got %+v", reloaded.Tags)
	}
	if _, err := f.svc.RemoveTag(shipment.ID, constants.TagFragile); !errors.Is(err, ErrTagNotOnShipment) || KindOf(err) != KindNotFound {
		t.Fatalf("expected ErrTagNotOnShipment, got %v", err)
	}
	if _, err := f.svc.AddTag(shipment.ID, "perishable"); !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("expected ErrInvalidTag, got %v", err)
	}
	if _, err := f.svc.AddTag("missing", constants.TagGift); !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("expected ErrShipmentNotFound, got %v", err)
	}
}

func TestSubmitReview(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	ctx := context.Background()

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusOutForDelivery)}); err != nil {
		t.Fatalf("out_for_delivery failed: %v", err)
	}
	code := f.storedCode(t, shipment.ID)
	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{
		Status:           strPtr(constants.ShipmentStatusDelivered),
		VerificationCode: strPtr(code),
	}); err != nil {
		t.Fatalf("delivered failed: %v", err)
	}
	link, _ := url.Parse(f.dispatcher.lastEmail(t).Context["review_url"])
	token := link.Query().Get("token")

	if _, err := f.svc.SubmitReview(SubmitReviewInput{Token: token, Rating: 6}); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
	if _, err := f.svc.SubmitReview(SubmitReviewInput{Token: "bogus", Rating: 4}); !errors.Is(err, ErrInvalidReviewToken) || KindOf(err) != KindInvalidToken {
		t.Fatalf("expected ErrInvalidReviewToken, got %v", err)
	}
	review, err := f.svc.SubmitReview(SubmitReviewInput{Token: token, Rating: 5, Comment: " great "})
	if err != nil {
		t.Fatalf("submit review failed: %v", err)
	}
	if review.ShipmentID != shipment.ID || review.Rating != 5 || review.Comment != "great" {
		t.Fatalf("unexpected review: %+v", review)
	}
	if _, err := f.svc.SubmitReview(SubmitReviewInput{Token: token, Rating: 3}); !errors.Is(err, ErrReviewAlreadyExists) {
		t.Fatalf("expected ErrReviewAlreadyExists, got %v", err)
	}

	orphan, _, err := f.tokens.IssueReviewToken("missing-shipment", time.Hour)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	if _, err := f.svc.SubmitReview(SubmitReviewInput{Token: orphan, Rating: 3}); !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("expected ErrShipmentNotFound, got %v", err)
	}
}

func TestNotificationFailureDoesNotFailLifecycle(t *testing.T) {
	f := setupShipmentTest(t)
	f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	f.dispatcher.err = errors.New("queue down")

	shipment, err := f.svc.Create(context.Background(), f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create must succeed despite notification failure: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), shipment.ID, f.seller.ID); err != nil {
		t.Fatalf("cancel must succeed despite notification failure: %v", err)
	}

	families, err := f.registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics failed: %v", err)
	}
	var failures float64
	for _, family := range families {
		if family.GetName() != "fastship_notifications_enqueue_failures_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			failures += metric.GetCounter().GetValue()
		}
	}
	if failures != 2 {
		t.Fatalf("expected 2 recorded email enqueue failures, got %v", failures)
	}
}

func TestTrackUsesCacheAndInvalidatesOnUpdate(t *testing.T) {
	f := setupShipmentTest(t)
	partner := f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	ctx := context.Background()

	shipment, err := f.svc.Create(ctx, f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	summary, err := f.svc.Track(ctx, shipment.ID)
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if summary.PartnerName != "Rapid Riders" || len(summary.Timeline) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !f.mr.Exists("fs:tracking:" + shipment.ID) {
		t.Fatalf("tracking summary should be cached")
	}

	if _, err := f.svc.Update(ctx, shipment.ID, partner.ID, UpdateShipmentInput{Status: strPtr(constants.ShipmentStatusInTransit)}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if f.mr.Exists("fs:tracking:" + shipment.ID) {
		t.Fatalf("update must invalidate cached tracking")
	}
	summary, err = f.svc.Track(ctx, shipment.ID)
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if summary.Status != constants.ShipmentStatusInTransit || len(summary.Timeline) != 2 {
		t.Fatalf("expected refreshed summary, got %+v", summary)
	}
	if _, err := f.svc.Track(ctx, "missing"); !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("expected ErrShipmentNotFound, got %v", err)
	}
}

func TestSellerAndPartnerScopedQueries(t *testing.T) {
	f := setupShipmentTest(t)
	f.addPartner(t, "partner-a", "Rapid Riders", 5, 11004)
	other := f.addSeller(t, "Other", "other@shop.test")

	shipment, err := f.svc.Create(context.Background(), f.seller.ID, shipmentInput(11004, "1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.svc.GetForSeller(shipment.ID, other.ID); !errors.Is(err, ErrNotShipmentOwner) {
		t.Fatalf("expected ErrNotShipmentOwner, got %v", err)
	}
	if _, err := f.svc.GetForPartner(shipment.ID, "partner-x"); !errors.Is(err, ErrNotAssignedPartner) {
		t.Fatalf("expected ErrNotAssignedPartner, got %v", err)
	}
	list, total, err := f.svc.ListForSeller(f.seller.ID, repository.ShipmentListFilter{Page: 1, PageSize: 10})
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("expected one seller shipment, got %d/%d (%v)", len(list), total, err)
	}
	list, total, err = f.svc.ListForPartner("partner-a", repository.ShipmentListFilter{Page: 1, PageSize: 10, SellerID: other.ID})
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("partner listing must ignore seller filter, got %d/%d (%v)", len(list), total, err)
	}
	list, total, _ = f.svc.ListForSeller(other.ID, repository.ShipmentListFilter{Page: 1, PageSize: 10})
	if total != 0 || len(list) != 0 {
		t.Fatalf("expected no shipments for other seller")
	}
}
