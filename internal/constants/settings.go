package constants

const (
	SettingWorkdayStart = "workday_start"
	SettingWorkdayEnd   = "workday_end"
	SettingWorkingDays  = "working_days"
	SettingTimezone     = "timezone"

	// Default Settings Values
	DefaultWorkdayStart = "09:00"
	DefaultWorkdayEnd   = "17:00"
	DefaultWorkingDays  = "1,2,3,4,5"
	DefaultTimezone     = "UTC"
)
