package domain

// Patient is a practice patient record.
type Patient struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	DateOfBirth        string            `json:"dateOfBirth"`
	Age                string            `json:"age"`
	Gender             string            `json:"gender"`
	Phone              string            `json:"phone"`
	Email              string            `json:"email,omitempty"`
	Address            string            `json:"address,omitempty"`
	MaritalStatus      string            `json:"maritalStatus,omitempty"`
	BloodType          string            `json:"bloodType,omitempty"`
	Allergies          string            `json:"allergies,omitempty"`
	CurrentMedications string            `json:"currentMedications,omitempty"`
	PastMedicalHistory string            `json:"pastMedicalHistory,omitempty"`
	SurgicalHistory    string            `json:"surgicalHistory,omitempty"`
	FamilyHistory      string            `json:"familyHistory,omitempty"`
	EmergencyContact   *EmergencyContact `json:"emergencyContact,omitempty"`
	InsuranceProvider  string            `json:"insuranceProvider,omitempty"`
	InsuranceID        string            `json:"insuranceId,omitempty"`
	GroupNumber        string            `json:"groupNumber,omitempty"`
	Occupation         string            `json:"occupation,omitempty"`
	PreferredLanguage  string            `json:"preferredLanguage,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	VitalSigns         *VitalSigns       `json:"vitalSigns,omitempty"`
	Status             string            `json:"status"` // active, inactive
	CreatedAt          string            `json:"createdAt"`
	UpdatedAt          string            `json:"updatedAt"`
}

// EmergencyContact is a patient's emergency contact.
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

// VitalSigns holds the most recent vitals as entered.
type VitalSigns struct {
	BloodPressure    string `json:"bloodPressure"` // e.g. "120/80"
	HeartRate        string `json:"heartRate"`
	Temperature      string `json:"temperature"`
	OxygenSaturation string `json:"oxygenSaturation"`
}

// Appointment is a scheduled visit.
type Appointment struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"appointment_date"` // YYYY-MM-DD
	Time      string `json:"appointment_time"` // HH:MM
	Duration  int    `json:"duration"`
	Type      string `json:"type"`   // consultation, follow-up, check-up, emergency, surgery
	Status    string `json:"status"` // scheduled, confirmed, completed, cancelled, no-show
	Reason    string `json:"reason"`
	Notes     string `json:"notes,omitempty"`
	Reminder  string `json:"reminder,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Appointment statuses referenced by reports.
const (
	AppointmentCompleted = "completed"
	AppointmentNoShow    = "no-show"
)

// Medication is one line of a prescription.
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
	Form         string `json:"form"`
}

// Prescription is a set of medications issued to a patient.
type Prescription struct {
	ID           string       `json:"id"`
	PatientID    string       `json:"patient_id"`
	Date         string       `json:"date"`
	Diagnosis    string       `json:"diagnosis"`
	Medications  []Medication `json:"medications"`
	Instructions string       `json:"instructions,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Status       string       `json:"status"`
	CreatedAt    string       `json:"created_at"`
	UpdatedAt    string       `json:"updated_at"`
}

// Settings is the practice configuration edited by the user.
type Settings struct {
	Practice      PracticeSettings     `json:"practice"`
	Preferences   PreferenceSettings   `json:"preferences"`
	Clinical      ClinicalSettings     `json:"clinical"`
	Notifications NotificationSettings `json:"notifications"`
	Billing       BillingSettings      `json:"billing"`
	Security      SecuritySettings     `json:"security"`
}

type PracticeSettings struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
	License string `json:"license"`
	TaxID   string `json:"taxId"`
}

type PreferenceSettings struct {
	Language                   string `json:"language"`
	Theme                      string `json:"theme"`
	DateFormat                 string `json:"dateFormat"`
	TimeFormat                 string `json:"timeFormat"`
	AutoLogout                 int    `json:"autoLogout"`
	DefaultView                string `json:"defaultView"`
	DefaultAppointmentReminder string `json:"defaultAppointmentReminder"`
}

type ClinicalSettings struct {
	DefaultMedicationDuration int  `json:"defaultMedicationDuration"`
	AutoCalculateBMI          bool `json:"autoCalculateBMI"`
	ShowDrugInteractions      bool `json:"showDrugInteractions"`
	EnableClinicalAlerts      bool `json:"enableClinicalAlerts"`
	RequireReasonForVisit     bool `json:"requireReasonForVisit"`
}

type NotificationSettings struct {
	EmailAppointments  bool `json:"emailAppointments"`
	EmailPrescriptions bool `json:"emailPrescriptions"`
	SMSReminders       bool `json:"smsReminders"`
	PushNotifications  bool `json:"pushNotifications"`
	LowStockAlerts     bool `json:"lowStockAlerts"`
}

type BillingSettings struct {
	Currency          string  `json:"currency"`
	TaxRate           float64 `json:"taxRate"`
	InvoicePrefix     string  `json:"invoicePrefix"`
	PaymentTerms      string  `json:"paymentTerms"`
	LateFeePercentage float64 `json:"lateFeePercentage"`
}

type SecuritySettings struct {
	TwoFactorAuth  bool `json:"twoFactorAuth"`
	SessionTimeout int  `json:"sessionTimeout"`
	PasswordExpiry int  `json:"passwordExpiry"`
	LoginAttempts  int  `json:"loginAttempts"`
	AutoBackup     bool `json:"autoBackup"`
}

// DefaultSettings returns the settings used before the user saves any.
func DefaultSettings() *Settings {
	return &Settings{
		Practice: PracticeSettings{
			Name:    "Digital Doctor Practice",
			Address: "123 Medical Center, Healthcare City",
			Phone:   "+1 (555) 123-4567",
			Email:   "contact@digitaldoctor.example.com",
			Website: "www.digitaldoctor.example.com",
			License: "MED123456789",
			TaxID:   "12-3456789",
		},
		Preferences: PreferenceSettings{
			Language:                   "en",
			Theme:                      "light",
			DateFormat:                 "YYYY-MM-DD",
			TimeFormat:                 "24h",
			AutoLogout:                 30,
			DefaultView:                "dashboard",
			DefaultAppointmentReminder: "1hr",
		},
		Clinical: ClinicalSettings{
			DefaultMedicationDuration: 7,
			AutoCalculateBMI:          true,
			ShowDrugInteractions:      true,
			EnableClinicalAlerts:      true,
			RequireReasonForVisit:     true,
		},
		Notifications: NotificationSettings{
			EmailAppointments:  true,
			EmailPrescriptions: true,
		},
		Billing: BillingSettings{
			Currency:          "USD",
			InvoicePrefix:     "INV-",
			PaymentTerms:      "Due on receipt",
			LateFeePercentage: 1.5,
		},
		Security: SecuritySettings{
			SessionTimeout: 30,
			PasswordExpiry: 90,
			LoginAttempts:  5,
			AutoBackup:     true,
		},
	}
}

// Backup is a full snapshot of the record store.
type Backup struct {
	Patients      []Patient      `json:"patients"`
	Appointments  []Appointment  `json:"appointments"`
	Prescriptions []Prescription `json:"prescriptions"`
	Settings      *Settings      `json:"settings"`
}
