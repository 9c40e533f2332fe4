package badgerstore

import "strings"

// Key layout. Ids are ULIDs and never contain '/'.
//
//	project/<project>                 Project
//	task/<task>                       Task
//	ptask/<project>/<task>            index: tasks of a project
//	child/<parent>/<child>            index: subtasks of a task
//	dep/out/<blocking>/<blocked>      graph.Edge
//	dep/in/<blocked>/<blocking>       index: reverse edge
//	event/<task>/<event>              event.Event
const (
	projectPrefix     = "project/"
	taskPrefix        = "task/"
	projectTaskPrefix = "ptask/"
	childPrefix       = "child/"
	depOutPrefix      = "dep/out/"
	depInPrefix       = "dep/in/"
	eventPrefix       = "event/"
)

func join(parts ...string) []byte {
	return []byte(strings.Join(parts, ""))
}

func projectKey(id string) []byte { return join(projectPrefix, id) }

func taskKey(id string) []byte { return join(taskPrefix, id) }

func projectTasksPrefix(projectID string) []byte { return join(projectTaskPrefix, projectID, "/") }

func projectTaskKey(projectID, taskID string) []byte {
	return join(projectTaskPrefix, projectID, "/", taskID)
}

func childrenPrefix(parentID string) []byte { return join(childPrefix, parentID, "/") }

func childKey(parentID, childID string) []byte { return join(childPrefix, parentID, "/", childID) }

func depOutPrefixOf(blockingID string) []byte { return join(depOutPrefix, blockingID, "/") }

func depOutKey(blockingID, blockedID string) []byte {
	return join(depOutPrefix, blockingID, "/", blockedID)
}

func depInPrefixOf(blockedID string) []byte { return join(depInPrefix, blockedID, "/") }

func depInKey(blockedID, blockingID string) []byte {
	return join(depInPrefix, blockedID, "/", blockingID)
}

func eventsPrefix(taskID string) []byte { return join(eventPrefix, taskID, "/") }

func eventKey(taskID, eventID string) []byte { return join(eventPrefix, taskID, "/", eventID) }
