package db

// Collection names shared by the mobile app, the admin dashboard and the
// realtime event topics. Each maps to one table.
const (
	CollectionUsers              = "users"
	CollectionHealthRecords      = "health_records"
	CollectionAppointments       = "appointments"
	CollectionBenefits           = "benefits"
	CollectionClaimedBenefits    = "claimed_benefits"
	CollectionEmergencyContacts  = "emergency_contacts"
	CollectionSocialFeatures     = "social_features"
	CollectionSocialParticipants = "social_feature_participants"
	CollectionSocialServices     = "social_services"
	CollectionReminders          = "reminders"
	CollectionEmergencyAlerts    = "emergency_alerts"
	CollectionDeviceTokens       = "device_tokens"
)

// Collections lists every collection in dependency-free order.
var Collections = []string{
	CollectionUsers,
	CollectionHealthRecords,
	CollectionAppointments,
	CollectionBenefits,
	CollectionClaimedBenefits,
	CollectionEmergencyContacts,
	CollectionSocialFeatures,
	CollectionSocialParticipants,
	CollectionSocialServices,
	CollectionReminders,
	CollectionEmergencyAlerts,
	CollectionDeviceTokens,
}

// IsCollection reports whether name is a known collection.
func IsCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}
