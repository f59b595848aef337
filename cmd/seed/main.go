package main

import (
	"flag"

	"github.com/fastship-next/internal/app"
	"github.com/fastship-next/internal/config"
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 初始化演示数据：配送员、卖家与邮编
func main() {
	var password string
	flag.StringVar(&password, "password", "fastship-demo", "演示账号密码")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	db, err := app.OpenDatabase(cfg)
	if err != nil {
		stdLog.Fatalf("Failed to open database: %v", err)
	}
	if err := models.SeedTags(db); err != nil {
		stdLog.Fatalf("Failed to seed tags: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash password: %v", err)
	}
	hash := string(hashed)

	partners := []struct {
		name     string
		email    string
		capacity int
		zips     []uint
	}{
		{name: "Rapid Riders", email: "rapid@fastship.local", capacity: 5, zips: []uint{11001, 11002, 11003}},
		{name: "Night Owl Couriers", email: "nightowl@fastship.local", capacity: 3, zips: []uint{11002, 11004}},
		{name: "Green Bikes", email: "green@fastship.local", capacity: 8, zips: []uint{11001, 11005}},
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, p := range partners {
			var count int64
			if err := tx.Model(&models.DeliveryPartner{}).Where("email = ?", p.email).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			locations := make([]models.Location, 0, len(p.zips))
			for _, zip := range p.zips {
				location := models.Location{ZipCode: zip}
				if err := tx.Where(models.Location{ZipCode: zip}).FirstOrCreate(&location).Error; err != nil {
					return err
				}
				locations = append(locations, location)
			}
			partner := models.DeliveryPartner{
				Account:              models.Account{Name: p.name, Email: p.email, EmailVerified: true, PasswordHash: hash},
				MaxHandlingCapacity:  p.capacity,
				ServiceableLocations: locations,
			}
			if err := tx.Create(&partner).Error; err != nil {
				return err
			}
			logger.Infow("seed_partner_created", "partner_id", partner.ID, "email", p.email)
		}

		seller := models.Seller{
			Account: models.Account{Name: "Demo Store", Email: "store@fastship.local", EmailVerified: true, PasswordHash: hash},
			Address: "1 Market Street",
			ZipCode: 11001,
		}
		return tx.Where("email = ?", seller.Email).FirstOrCreate(&seller).Error
	})
	if err != nil {
		stdLog.Fatalf("Failed to seed demo data: %v", err)
	}
	stdLog.Printf("Seed data ready, password for all demo accounts: %s", password)
}
