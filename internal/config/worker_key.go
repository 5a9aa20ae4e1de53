package config

type WorkerKeyStruct struct {
	NotifyPendingQueue string
}

var WorkerKey = &WorkerKeyStruct{
	NotifyPendingQueue: "notify_pending_queue",
}
