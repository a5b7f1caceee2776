package tui

// State is one screen of the wizard
type State int

const (
	StateMainMenu State = iota
	StateSettings
	StateClassList
	StateClassEdit
	StateClassField
	StateConfirmRemove
	StateManifestEdit
	StateManifestField
	StateSavePrompt
	StateLoadPrompt
	StatePackPrompt
	StateScraping
	StatePacking
	StateDone
	StateExitConfirm
	StateQuit
)

var stateNames = map[State]string{
	StateMainMenu:      "main_menu",
	StateSettings:      "settings",
	StateClassList:     "class_list",
	StateClassEdit:     "class_edit",
	StateClassField:    "class_field",
	StateConfirmRemove: "confirm_remove",
	StateManifestEdit:  "manifest_edit",
	StateManifestField: "manifest_field",
	StateSavePrompt:    "save_prompt",
	StateLoadPrompt:    "load_prompt",
	StatePackPrompt:    "pack_prompt",
	StateScraping:      "scraping",
	StatePacking:       "packing",
	StateDone:          "done",
	StateExitConfirm:   "exit_confirm",
	StateQuit:          "quit",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Event is what a key press or a finished command means to the wizard
type Event int

const (
	EventEditConfig Event = iota
	EventScrape
	EventPack
	EventSave
	EventLoad
	EventExit      // exit with nothing unsaved
	EventExitDirty // exit with unsaved changes
	EventEditClasses
	EventEditManifest
	EventBack
	EventSelect
	EventAdd
	EventEditField
	EventRemove
	EventSubmit
	EventCancel
	EventYes
	EventNo
	EventSaved
	EventSavedQuit
	EventLoaded
	EventFinished
	EventContinue
)

// transitions lists every legal move. Anything missing is ignored.
var transitions = map[State]map[Event]State{
	StateMainMenu: {
		EventEditConfig: StateSettings,
		EventScrape:     StateScraping,
		EventPack:       StatePackPrompt,
		EventSave:       StateSavePrompt,
		EventLoad:       StateLoadPrompt,
		EventExit:       StateQuit,
		EventExitDirty:  StateExitConfirm,
	},
	StateSettings: {
		EventEditClasses:  StateClassList,
		EventEditManifest: StateManifestEdit,
		EventBack:         StateMainMenu,
	},
	StateClassList: {
		EventSelect: StateClassEdit,
		EventAdd:    StateClassList,
		EventBack:   StateSettings,
	},
	StateClassEdit: {
		EventEditField: StateClassField,
		EventRemove:    StateConfirmRemove,
		EventBack:      StateClassList,
	},
	StateClassField: {
		EventSubmit: StateClassEdit,
		EventCancel: StateClassEdit,
	},
	StateConfirmRemove: {
		EventYes: StateClassList,
		EventNo:  StateClassEdit,
	},
	StateManifestEdit: {
		EventEditField: StateManifestField,
		EventBack:      StateSettings,
	},
	StateManifestField: {
		EventSubmit: StateManifestEdit,
		EventCancel: StateManifestEdit,
	},
	StateSavePrompt: {
		EventSaved:     StateMainMenu,
		EventSavedQuit: StateQuit,
		EventCancel:    StateMainMenu,
	},
	StateLoadPrompt: {
		EventLoaded: StateMainMenu,
		EventCancel: StateMainMenu,
	},
	StatePackPrompt: {
		EventSubmit: StatePacking,
		EventCancel: StateMainMenu,
	},
	StateScraping: {
		EventFinished: StateDone,
	},
	StatePacking: {
		EventFinished: StateDone,
	},
	StateDone: {
		EventContinue: StateMainMenu,
	},
	StateExitConfirm: {
		EventYes:    StateSavePrompt,
		EventNo:     StateQuit,
		EventCancel: StateMainMenu,
	},
}

// Next returns the state reached from s on e, and whether the move exists
func Next(s State, e Event) (State, bool) {
	to, ok := transitions[s][e]
	return to, ok
}
