package sqlitestore

import "time"

type jobModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	HospitalID   int64  `gorm:"index"`
	FilePath     string `gorm:"size:1024"`
	FileName     string `gorm:"size:255"`
	FileSize     int64
	Encoding     string `gorm:"size:32"`
	Status       string `gorm:"index;size:16"`
	RowsTotal    int
	RowsPassed   int
	RowsRejected int
	RunCount     int
	RunTimeMS    int64
	RejectPath   *string   `gorm:"size:1024"`
	LastError    string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (jobModel) TableName() string { return "import_jobs" }

type stateModel struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:128"`
}

func (stateModel) TableName() string { return "states" }

type dispatchAreaModel struct {
	ID      int64  `gorm:"primaryKey"`
	Name    string `gorm:"size:255"`
	StateID int64  `gorm:"index"`
}

func (dispatchAreaModel) TableName() string { return "dispatch_areas" }

type indicationModel struct {
	ID           int64 `gorm:"primaryKey"`
	Code         *int
	Text         string `gorm:"type:text"`
	Hash         string `gorm:"uniqueIndex;size:64"`
	NormalizedID *int64
}

func (indicationModel) TableName() string { return "indications_raw" }

type allocationModel struct {
	ID             int64  `gorm:"primaryKey"`
	ImportID       string `gorm:"index;size:36"`
	HospitalID     int64
	DispatchAreaID int64
	StateID        int64
	CreatedAt      time.Time
	ArrivalAt      time.Time
	Gender         string `gorm:"size:1"`
	Age            int
	Urgency        int
	TransportType  *string `gorm:"size:16"`

	RequiresResus   bool
	RequiresCathlab bool
	IsCPR           bool `gorm:"column:is_cpr"`
	IsVentilated    bool
	IsShock         bool
	IsPregnant      bool
	IsWithPhysician bool
	IsInfectious    bool
	IsWorkAccident  bool

	Airway      *string
	Breathing   *string
	Circulation *string
	Disability  *string

	IndicationCode         *int
	IndicationRawID        *int64
	IndicationNormalizedID *int64
}

func (allocationModel) TableName() string { return "allocations" }

type rejectModel struct {
	ID         int64  `gorm:"primaryKey"`
	ImportID   string `gorm:"index;size:36"`
	LineNumber *int
	Messages   string `gorm:"type:text"`
	RowData    string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (rejectModel) TableName() string { return "allocation_import_rejects" }
