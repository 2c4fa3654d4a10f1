package ws

type Hubs struct {
	Monitor *MonitorHub
	Student *StudentHub
}

func NewHubs() *Hubs {
	return &Hubs{
		Monitor: NewMonitorHub(),
		Student: NewStudentHub(),
	}
}
