package config

type WorkerKeyStruct struct {
	PersistAnswersQueue     string
	PersistTabSwitchesQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:     "persist_answers_queue",
	PersistTabSwitchesQueue: "persist_tab_switches_queue",
}
