package model

// Admin is a back-office account identified by username.
type Admin struct {
	Base
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
}

type Overview struct {
	Doctors      int           `json:"doctors"`
	Patients     int           `json:"patients"`
	Appointments int           `json:"appointments"`
	Blacklisted  int           `json:"blacklisted"`
	Departments  []*Department `json:"departments"`
}

// BlacklistResult reports whether a blacklist command changed state.
type BlacklistResult struct {
	Changed     bool `json:"changed"`
	Blacklisted bool `json:"blacklisted"`
}
