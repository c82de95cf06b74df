package catalog

var locales = map[string]map[string]string{
	BaseLocale: {
		"error.UNKNOWN":             "Something went wrong",
		"error.NOT_FOUND":           "Not found",
		"error.VALIDATION_REJECTED": "Invalid input",
		"error.TRANSPORT_FAILURE":   "Could not reach the remote service",
		"error.STALE_REQUEST":       "Request superseded",
		"error.INVALID_ID":          "Invalid id",
		"error.INVALID_REFERENCE":   "Referenced record does not exist",
		"error.LOAD_FAILED":         "Could not load data",
		"error.STORAGE_FAILURE":     "Could not save changes",

		"discipline.invalid_id":  "Invalid discipline id",
		"discipline.not_found":   "Discipline not found",
		"discipline.load_failed": "Could not load discipline: %s",
		"task.not_found":         "Task not found",
		"task.load_failed":       "Could not load task",
		"motd.fetch_failed":      "Failed to fetch message: %s",

		"agenda.summary": "%s: %d classes, %d tasks due, %d overdue",
		"agenda.class":   "%s to %s %s",
		"agenda.task":    "due %s",
	},
	"pt-BR": {
		"error.UNKNOWN":             "Algo deu errado",
		"error.NOT_FOUND":           "Não encontrado",
		"error.VALIDATION_REJECTED": "Dados inválidos",
		"error.TRANSPORT_FAILURE":   "Não foi possível acessar o serviço remoto",
		"error.STALE_REQUEST":       "Requisição substituída",
		"error.INVALID_ID":          "ID inválido",
		"error.INVALID_REFERENCE":   "Registro referenciado não existe",
		"error.LOAD_FAILED":         "Não foi possível carregar os dados",
		"error.STORAGE_FAILURE":     "Não foi possível salvar as alterações",

		"discipline.invalid_id":  "ID da disciplina inválido",
		"discipline.not_found":   "Disciplina não encontrada",
		"discipline.load_failed": "Erro ao carregar disciplina: %s",
		"task.not_found":         "Tarefa não encontrada",
		"task.load_failed":       "Erro ao carregar tarefa",
		"motd.fetch_failed":      "Falha ao buscar mensagem: %s",

		"agenda.summary": "%s: %d aulas, %d tarefas para hoje, %d atrasadas",
		"agenda.class":   "%s às %s %s",
		"agenda.task":    "vence %s",
	},
}
