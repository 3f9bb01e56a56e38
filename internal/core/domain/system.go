package domain

// System is one inventory entry, keyed by hostname.
type System struct {
	Hostname    string  `json:"hostname" gorm:"primaryKey"`
	LoadAverage float64 `json:"loadAverage"`
}

func (System) TableName() string {
	return "systems"
}

// SystemLoad is the load report delivered on the inbound load channel.
type SystemLoad struct {
	Hostname    string  `json:"hostname"`
	LoadAverage float64 `json:"loadAverage"`
}

// System converts the report into the entry it describes.
func (sl SystemLoad) System() System {
	return System{Hostname: sl.Hostname, LoadAverage: sl.LoadAverage}
}
