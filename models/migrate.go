package models

import "gorm.io/gorm"

// All lists every table owned by this service, in dependency order.
func All() []interface{} {
	return []interface{}{
		&BadgeType{},
		&Mission{},
		&Submission{},
		&SubmissionDecision{},
		&UserBalance{},
		&RewardGrant{},
		&UserBadge{},
		&Raffle{},
		&RaffleTicket{},
		&ConsumerProfile{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
