package resource

import "time"

type LeaveRequest struct {
	ID         int64     `gorm:"primaryKey"`
	UserID     int64     `gorm:"column:user_id;index;not null"`
	LocationID int64     `gorm:"column:location_id;not null"`
	LeaveType  string    `gorm:"column:leave_type;not null"`
	StartDate  time.Time `gorm:"column:start_date;not null"`
	EndDate    time.Time `gorm:"column:end_date;not null"`
	Days       float64   `gorm:"column:days;not null"`
	Reason     string    `gorm:"column:reason"`
	Status     string    `gorm:"column:status;not null;default:draft"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

type Timesheet struct {
	ID          int64     `gorm:"primaryKey"`
	UserID      int64     `gorm:"column:user_id;index;not null"`
	LocationID  int64     `gorm:"column:location_id;not null"`
	PeriodStart time.Time `gorm:"column:period_start;not null"`
	PeriodEnd   time.Time `gorm:"column:period_end;not null"`
	TotalHours  float64   `gorm:"column:total_hours;not null"`
	Status      string    `gorm:"column:status;not null;default:draft"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Timesheet) TableName() string {
	return "timesheets"
}
